package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config carries everything the server wires at startup.
type Config struct {
	HTTPAddr    string
	DatabaseURL string // empty selects the in-memory store

	KafkaBrokers []string // empty disables event publishing

	RedisAddr     string // empty selects the in-memory idempotency store
	RedisPassword string

	JWTSecret string

	MaxDeposit    decimal.Decimal
	CASMaxRetries int

	NotifyWorkers   int
	NotifyQueueSize int
}

// Load reads configuration from the environment, after a best-effort
// .env load.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        envString("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		KafkaBrokers:    envList("KAFKA_BROKERS"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       envString("JWT_SECRET", "dev-secret"),
		MaxDeposit:      envDecimal("MAX_DEPOSIT", decimal.NewFromInt(1_000_000)),
		CASMaxRetries:   envInt("CAS_MAX_RETRIES", 5),
		NotifyWorkers:   envInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize: envInt("NOTIFY_QUEUE_SIZE", 256),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
