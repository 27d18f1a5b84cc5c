package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/banking-ledger-system/internal/auth"
	"github.com/sheikh-saqib/banking-ledger-system/internal/config"
	"github.com/sheikh-saqib/banking-ledger-system/internal/events/kafka"
	"github.com/sheikh-saqib/banking-ledger-system/internal/events/nop"
	"github.com/sheikh-saqib/banking-ledger-system/internal/httpapi"
	"github.com/sheikh-saqib/banking-ledger-system/internal/idempotency"
	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-system/internal/notify"
	"github.com/sheikh-saqib/banking-ledger-system/internal/storage/memory"
	"github.com/sheikh-saqib/banking-ledger-system/internal/storage/postgres"
	"github.com/sheikh-saqib/banking-ledger-system/internal/transfer"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	var store interfaces.LedgerStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal("ping database", zap.Error(err))
		}
		store = postgres.NewPostgresLedgerStore(db)
		logger.Info("using postgres ledger store")
	} else {
		store = memory.NewMemoryLedgerStore()
		logger.Info("using in-memory ledger store")
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		publisher = nop.NewPublisher()
		logger.Info("event publishing disabled")
	}

	var idemStore idempotency.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		idemStore = idempotency.NewRedisStore(client, 24*time.Hour)
		logger.Info("using redis idempotency store", zap.String("addr", cfg.RedisAddr))
	} else {
		idemStore = idempotency.NewMemoryStore()
	}

	gate := auth.NewGate(store)
	ledgerService := ledger.NewLedger(store, gate,
		ledger.WithMaxRetries(cfg.CASMaxRetries),
		ledger.WithMaxDeposit(cfg.MaxDeposit),
	)

	dispatcher := notify.NewDispatcher(notify.NewSimulatedDeliverer(), logger, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	dispatcher.Start()
	defer dispatcher.Stop()

	orchestrator := transfer.NewOrchestrator(store, ledgerService, publisher, dispatcher, idemStore, logger)

	handler := httpapi.NewHandler(ledgerService, orchestrator, dispatcher)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(handler, cfg.JWTSecret),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}
}
