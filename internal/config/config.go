// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)

	// Geolocation collaborator
	GeoAPIURL        string // IP geolocation service base URL
	GeoTimeoutMillis int64  // per-lookup timeout

	// Risk engine tuning
	DefaultCurrency  string  // display currency echoed in responses
	DefaultUserValue float64 // assumed customer lifetime value for churn estimates

	// Security
	RateLimitRPM int      // requests per minute per client
	CORSOrigins  []string // allowed CORS origins
}

// Defaults
const (
	DefaultPort       = "8080"
	DefaultEnv        = "development"
	DefaultLogLevel   = "info"
	DefaultGeoAPIURL  = "https://ipapi.co"
	DefaultGeoTimeout = 5000
	DefaultRateLimit  = 120
	DefaultUserValue  = 1000.0
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GeoAPIURL:        getEnv("GEO_API_URL", DefaultGeoAPIURL),
		GeoTimeoutMillis: getEnvInt64("GEO_TIMEOUT_MS", DefaultGeoTimeout),
		DefaultCurrency:  getEnv("CURRENCY", "INR"),
		DefaultUserValue: getEnvFloat("DEFAULT_USER_VALUE", DefaultUserValue),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", int64(DefaultRateLimit))),
		CORSOrigins:      []string{getEnv("CORS_ORIGIN", "*")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.GeoTimeoutMillis <= 0 {
		return fmt.Errorf("GEO_TIMEOUT_MS must be positive")
	}
	if c.DefaultUserValue < 0 {
		return fmt.Errorf("DEFAULT_USER_VALUE must be non-negative")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
