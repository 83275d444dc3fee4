package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	Environment    string

	// JWTSecret verifies bearer tokens issued by the identity provider.
	JWTSecret string

	// ResultsSigningKey keys the HMAC over persisted results snapshots.
	ResultsSigningKey string

	// LockPublishedSessions blocks structural edits to a session once it has
	// been published. Off by default; administrators then retain force-edit.
	LockPublishedSessions bool

	// StorageTimeout bounds every repository call.
	StorageTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		Environment:           getEnv("ENVIRONMENT", "production"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		ResultsSigningKey:     getEnv("RESULTS_SIGNING_KEY", ""),
		LockPublishedSessions: getBoolEnv("LOCK_PUBLISHED_SESSIONS", false),
		StorageTimeout:        getDurationEnv("STORAGE_TIMEOUT", 5*time.Second),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
