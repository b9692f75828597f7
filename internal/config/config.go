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

	// Persistence
	DBPath string

	// Resilience (wraps the local store)
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Payment session
	PIN                string // demo PIN, hashed at startup
	PINHash            string // bcrypt hash; takes precedence over PIN
	PINCheckDelay      time.Duration
	PINErrorResetDelay time.Duration
	SettlementDelay    time.Duration
	SessionTTL         time.Duration
	SessionSecret      string

	// Scanner
	ScanInterval time.Duration

	// Classifier
	RulesFile string

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBPath: getEnv("DB_PATH", "supermoney.db"),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 20*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),

		PIN:                getEnv("UPI_PIN", "2580"),
		PINHash:            getEnv("UPI_PIN_HASH", ""),
		PINCheckDelay:      getEnvDuration("PIN_CHECK_DELAY", 200*time.Millisecond),
		PINErrorResetDelay: getEnvDuration("PIN_ERROR_RESET_DELAY", 800*time.Millisecond),
		SettlementDelay:    getEnvDuration("SETTLEMENT_DELAY", 5*time.Second),
		SessionTTL:         getEnvDuration("SESSION_TTL", 15*time.Minute),
		SessionSecret:      getEnv("SESSION_SECRET", "upi-bfa-default-dev-secret-change-me"),

		ScanInterval: getEnvDuration("SCAN_INTERVAL", 500*time.Millisecond),

		RulesFile: getEnv("UPI_RULES_FILE", ""),

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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
