package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"auction-house/utils"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port        string
	LogLevel    string
	DatabaseURL string // empty selects the in-memory ledger

	RabbitMQURL   string // empty selects the log publisher
	RabbitMQQueue string

	SweepInterval    time.Duration
	SweepBatchSize   int
	CloseConcurrency int

	BidMaxAttempts   int
	BidTimeout       time.Duration
	MinRatingPercent int

	NotifyBuffer  int
	NotifyWorkers int

	SeedDemoData bool
}

// NewConfig creates a new configuration from environment variables
func NewConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		utils.Debug("no .env file found, using environment and defaults", nil)
	}

	return &Config{
		Port:             getPort(),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQQueue:    getEnv("RABBITMQ_QUEUE", "auction_events"),
		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", time.Second),
		SweepBatchSize:   getEnvInt("SWEEP_BATCH_SIZE", 100),
		CloseConcurrency: getEnvInt("CLOSE_CONCURRENCY", 8),
		BidMaxAttempts:   getEnvInt("BID_MAX_ATTEMPTS", 5),
		BidTimeout:       getEnvDuration("BID_TIMEOUT", 2*time.Second),
		MinRatingPercent: getEnvInt("MIN_RATING_PERCENT", 80),
		NotifyBuffer:     getEnvInt("NOTIFY_BUFFER", 1024),
		NotifyWorkers:    getEnvInt("NOTIFY_WORKERS", 4),
		SeedDemoData:     getEnvBool("SEED_DEMO_DATA", true),
	}
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		utils.Warn("invalid integer in environment, using default", map[string]any{"key": key, "value": raw, "default": defaultValue})
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		utils.Warn("invalid duration in environment, using default", map[string]any{"key": key, "value": raw, "default": defaultValue.String()})
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
