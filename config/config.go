// Package config loads the environment-driven configuration for the
// cmd/example demo server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the example server's configuration values.
type Config struct {
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	RedisURL string

	// RetryAfterEnabled/RetryAfterStyle select the middleware's
	// Retry-After header behavior. Style is either "seconds" or
	// "http-date".
	RetryAfterEnabled bool
	RetryAfterStyle   string

	// Default fixed-window limits applied by the demo routes.
	LimitPerSecond int
	LimitPerMinute int
	BlockSeconds   int

	LogLevel string
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("RATELIMIT_GRACEFUL_TIMEOUT_SEC", 15)

	return &Config{
		Addr:              getEnv("RATELIMIT_ADDR", ":8080"),
		Env:               getEnv("ENV", "development"),
		GracefulTimeout:   time.Duration(gracefulSec) * time.Second,
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		RetryAfterEnabled: getEnvBool("RATELIMIT_RETRY_AFTER_ENABLED", true),
		RetryAfterStyle:   getEnv("RATELIMIT_RETRY_AFTER_STYLE", "seconds"),
		LimitPerSecond:    getEnvInt("RATELIMIT_LIMIT_PER_SECOND", 2),
		LimitPerMinute:    getEnvInt("RATELIMIT_LIMIT_PER_MINUTE", 20),
		BlockSeconds:      getEnvInt("RATELIMIT_BLOCK_SECONDS", 30),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
