package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reserves idempotency keys so a replayed transfer request maps back
// to the transaction created by the first attempt.
type Store interface {
	// Reserve claims key for transactionID. It returns true when this call
	// won the claim, or false plus the transaction ID of the earlier winner.
	Reserve(ctx context.Context, key, transactionID string) (bool, string, error)
}

// RedisStore backs key reservation with Redis SETNX, so replays are
// detected across service instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key, transactionID string) (bool, string, error) {
	redisKey := "idempotency:" + key
	won, err := s.client.SetNX(ctx, redisKey, transactionID, s.ttl).Result()
	if err != nil {
		return false, "", err
	}
	if won {
		return true, transactionID, nil
	}
	existing, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		return false, "", err
	}
	return false, existing, nil
}

// MemoryStore is a single-process Store for tests and local development.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]string)}
}

func (s *MemoryStore) Reserve(ctx context.Context, key, transactionID string) (bool, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.keys[key]; ok {
		return false, existing, nil
	}
	s.keys[key] = transactionID
	return true, transactionID, nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
