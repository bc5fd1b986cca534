/**
 * @description
 * This is the main entry point for the transaction-service. It is responsible
 * for initializing all components of the service: configuration, logging, the
 * transaction store, the Kafka publisher and consumer, the reconciliation
 * sweep, and the HTTP server. It wires everything together and starts the
 * service.
 *
 * The service is built to degrade instead of refusing to boot: a missing
 * database falls back to the in-memory store, an unreachable broker falls
 * back to a no-op publisher, and a missing Redis simply disables rate
 * limiting. The primary create/read path keeps functioning in every case.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/api"
	"github.com/veripay/transaction-flow/internal/app"
	"github.com/veripay/transaction-flow/internal/config"
	"github.com/veripay/transaction-flow/internal/store"
	"github.com/veripay/transaction-flow/pkg/kafka"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: Postgres when configured, in-memory otherwise.
	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database connection failed: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatalf("database ping failed: %v", err)
		}
		repo = store.NewPostgresRepository(pool)
		logger.Info("database connected")
	} else {
		repo = store.NewMemoryRepository()
		logger.Warn("DATABASE_URL not set; using in-memory store")
	}

	// Publisher: degrade to a no-op when the broker is unreachable so that
	// transaction creation never depends on messaging availability.
	var transport app.TransportPublisher
	if kafka.Reachable(cfg.Brokers(), 5*time.Second) {
		publisher := kafka.NewPublisher(cfg.Brokers(), cfg.KafkaTopic)
		defer publisher.Close()
		transport = publisher
		logger.Info("kafka publisher connected")
	} else {
		transport = kafka.NewFallbackPublisher(logger)
		logger.Warn("kafka unreachable; publisher degraded")
	}
	events := app.NewEnvelopePublisher(transport)

	service := app.NewService(repo, events, logger)

	if cfg.CreateRateLimitPerMinute > 0 && cfg.RedisURL != "" {
		if options, err := redis.ParseURL(cfg.RedisURL); err != nil {
			logger.WithError(err).Warn("redis url parse failed; rate limiting disabled")
		} else {
			client := redis.NewClient(options)
			defer client.Close()
			service.SetCreateRateLimiter(app.NewRedisRateLimiter(client, cfg.RedisRateLimitPrefix), cfg.CreateRateLimitPerMinute)
			logger.Info("redis rate limiting enabled")
		}
	}

	// Consumer for fraud verdicts coming back on the lifecycle topic.
	consumer := kafka.NewConsumer(
		cfg.Brokers(),
		cfg.KafkaTopic,
		cfg.TransactionConsumerGroup,
		service.StatusUpdateConsumer().HandleMessage,
		logger,
	)
	go consumer.Run(ctx)

	// Reconciliation sweep for pending aggregates whose created event may
	// have been lost to the dual-write gap.
	sweeper := app.NewPendingSweeper(
		repo,
		events,
		logger,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
		time.Duration(cfg.SweepGraceSeconds)*time.Second,
		cfg.SweepBatchLimit,
	)
	go sweeper.Run(ctx)

	handlers := api.NewTransactionHandlers(service, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: api.TransactionRoutes(handlers, cfg.InternalAPIKey),
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("transaction-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server stopped unexpectedly: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutdown started")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
	logger.Info("shutdown complete")
}
