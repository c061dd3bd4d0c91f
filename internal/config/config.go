package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Ledger rules
	DepositAmount    int64
	MinBet           int64
	MaxBet           int64
	PayoutMultiplier int64

	// HTTP surface
	MaxConcurrency int
	IdempotencyTTL time.Duration

	// Entropy service (optional; local generator when empty)
	EntropyAPIURL string
	HTTPTimeout   time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DepositAmount:    getEnvInt64("DEPOSIT_AMOUNT", 10),
		MinBet:           getEnvInt64("MIN_BET", 1),
		MaxBet:           getEnvInt64("MAX_BET", 20),
		PayoutMultiplier: getEnvInt64("PAYOUT_MULTIPLIER", 100),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 256),
		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute),

		EntropyAPIURL: getEnv("ENTROPY_API_URL", ""),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 2*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 50*time.Millisecond),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
