/**
 * @description
 * This is the main entry point for the antifraud-service. It consumes
 * transaction-created events from the lifecycle topic, evaluates each one
 * against the configured threshold, and publishes the verdict back onto the
 * same topic under the same partition key. A small HTTP server exposes a
 * health endpoint.
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

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/antifraud"
	"github.com/veripay/transaction-flow/internal/app"
	"github.com/veripay/transaction-flow/internal/config"
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

	threshold := antifraud.DefaultThreshold
	if parsed, err := decimal.NewFromString(cfg.FraudThreshold); err != nil {
		logger.WithField("value", cfg.FraudThreshold).Warn("invalid FRAUD_THRESHOLD; using default")
	} else {
		threshold = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The verdict publisher is never swapped for the no-op fallback here: a
	// failed publish makes the handler request redelivery, so a broker outage
	// only delays verdicts instead of dropping them.
	publisher := kafka.NewPublisher(cfg.Brokers(), cfg.KafkaTopic)
	defer publisher.Close()

	service := antifraud.NewService(app.NewEnvelopePublisher(publisher), threshold, logger)
	logger.WithField("threshold", threshold).Info("fraud threshold configured")

	consumer := kafka.NewConsumer(
		cfg.Brokers(),
		cfg.KafkaTopic,
		cfg.AntifraudConsumerGroup,
		service.HandleMessage,
		logger,
	)
	go consumer.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AntifraudServerPort),
		Handler: mux,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("antifraud-service listening")
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
