package config

import (
	"os"
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"SERVER_PORT", "ANTIFRAUD_SERVER_PORT", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"TRANSACTION_CONSUMER_GROUP", "ANTIFRAUD_CONSUMER_GROUP", "FRAUD_THRESHOLD",
		"SWEEP_INTERVAL_SECONDS", "SWEEP_GRACE_SECONDS", "SWEEP_BATCH_LIMIT",
		"CREATE_RATE_LIMIT_PER_MINUTE",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default ServerPort 8080, got %q", cfg.ServerPort)
	}
	if cfg.AntifraudServerPort != "8081" {
		t.Fatalf("expected default AntifraudServerPort 8081, got %q", cfg.AntifraudServerPort)
	}
	if cfg.KafkaTopic != "transaction-events" {
		t.Fatalf("expected default topic transaction-events, got %q", cfg.KafkaTopic)
	}
	if cfg.TransactionConsumerGroup != "transaction-service-group" {
		t.Fatalf("unexpected default transaction consumer group %q", cfg.TransactionConsumerGroup)
	}
	if cfg.AntifraudConsumerGroup != "anti-fraud-group" {
		t.Fatalf("unexpected default anti-fraud consumer group %q", cfg.AntifraudConsumerGroup)
	}
	if cfg.FraudThreshold != "1000" {
		t.Fatalf("expected default FraudThreshold 1000, got %q", cfg.FraudThreshold)
	}
	if cfg.SweepIntervalSeconds != 60 || cfg.SweepGraceSeconds != 120 || cfg.SweepBatchLimit != 100 {
		t.Fatalf("unexpected sweep defaults: %d/%d/%d", cfg.SweepIntervalSeconds, cfg.SweepGraceSeconds, cfg.SweepBatchLimit)
	}
	if cfg.CreateRateLimitPerMinute != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %d", cfg.CreateRateLimitPerMinute)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	setEnvWithCleanup(t, "FRAUD_THRESHOLD", "2500.50")
	setEnvWithCleanup(t, "INTERNAL_API_KEY", "  secret-key  ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FraudThreshold != "2500.50" {
		t.Fatalf("expected FraudThreshold override, got %q", cfg.FraudThreshold)
	}
	if cfg.InternalAPIKey != "secret-key" {
		t.Fatalf("expected trimmed InternalAPIKey, got %q", cfg.InternalAPIKey)
	}
	if got := cfg.Brokers(); !reflect.DeepEqual(got, []string{"broker-1:9092", "broker-2:9092"}) {
		t.Fatalf("expected brokers split and trimmed, got %v", got)
	}
}

func TestLoadConfig_NegativeRateLimitIsDisabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CREATE_RATE_LIMIT_PER_MINUTE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CreateRateLimitPerMinute != 0 {
		t.Fatalf("expected negative limit to disable rate limiting, got %d", cfg.CreateRateLimitPerMinute)
	}
}

func TestLoadConfig_InvalidSweepValuesFallBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SWEEP_INTERVAL_SECONDS", "0")
	setEnvWithCleanup(t, "SWEEP_GRACE_SECONDS", "-1")
	setEnvWithCleanup(t, "SWEEP_BATCH_LIMIT", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SweepIntervalSeconds != 60 || cfg.SweepGraceSeconds != 120 || cfg.SweepBatchLimit != 100 {
		t.Fatalf("expected sweep fallbacks, got %d/%d/%d", cfg.SweepIntervalSeconds, cfg.SweepGraceSeconds, cfg.SweepBatchLimit)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
