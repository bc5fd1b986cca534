/**
 * @description
 * This package handles the configuration management for both services. It
 * uses the Viper library to read configuration from environment variables
 * (with an optional .env file), providing a centralized and straightforward
 * way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the transaction and
// anti-fraud services. These values are loaded from environment variables.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	AntifraudServerPort string `mapstructure:"ANTIFRAUD_SERVER_PORT"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	KafkaBrokers             string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic               string `mapstructure:"KAFKA_TOPIC"`
	TransactionConsumerGroup string `mapstructure:"TRANSACTION_CONSUMER_GROUP"`
	AntifraudConsumerGroup   string `mapstructure:"ANTIFRAUD_CONSUMER_GROUP"`

	FraudThreshold string `mapstructure:"FRAUD_THRESHOLD"`

	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`
	SweepGraceSeconds    int `mapstructure:"SWEEP_GRACE_SECONDS"`
	SweepBatchLimit      int `mapstructure:"SWEEP_BATCH_LIMIT"`

	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	CreateRateLimitPerMinute int    `mapstructure:"CREATE_RATE_LIMIT_PER_MINUTE"`

	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ANTIFRAUD_SERVER_PORT", "8081")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_TOPIC", "transaction-events")
	viper.SetDefault("TRANSACTION_CONSUMER_GROUP", "transaction-service-group")
	viper.SetDefault("ANTIFRAUD_CONSUMER_GROUP", "anti-fraud-group")
	viper.SetDefault("FRAUD_THRESHOLD", "1000")
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("SWEEP_GRACE_SECONDS", 120)
	viper.SetDefault("SWEEP_BATCH_LIMIT", 100)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "txflow:rate_limit")
	viper.SetDefault("CREATE_RATE_LIMIT_PER_MINUTE", 0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("ANTIFRAUD_SERVER_PORT")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("KAFKA_BROKERS")
	_ = viper.BindEnv("KAFKA_TOPIC")
	_ = viper.BindEnv("TRANSACTION_CONSUMER_GROUP")
	_ = viper.BindEnv("ANTIFRAUD_CONSUMER_GROUP")
	_ = viper.BindEnv("FRAUD_THRESHOLD")
	_ = viper.BindEnv("SWEEP_INTERVAL_SECONDS")
	_ = viper.BindEnv("SWEEP_GRACE_SECONDS")
	_ = viper.BindEnv("SWEEP_BATCH_LIMIT")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("CREATE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("INTERNAL_API_KEY")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if config.SweepIntervalSeconds <= 0 {
		config.SweepIntervalSeconds = 60
	}
	if config.SweepGraceSeconds <= 0 {
		config.SweepGraceSeconds = 120
	}
	if config.SweepBatchLimit <= 0 {
		config.SweepBatchLimit = 100
	}
	if config.CreateRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative create rate limit configured; disabling\" limit=%d", config.CreateRateLimitPerMinute)
		config.CreateRateLimitPerMinute = 0
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)

	return
}

// Brokers splits the comma-separated broker list.
func (c Config) Brokers() []string {
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
