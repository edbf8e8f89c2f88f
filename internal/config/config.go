// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

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

	// Chain data source
	RPCURL       string        // Alchemy-compatible JSON-RPC endpoint
	FetchTimeout time.Duration // Per-fetch deadline for transfer history calls
	FetchLimit   int           // Max transactions pulled per analysis

	// Risk model
	ModelPath         string  // JSON model artifact; empty or missing degrades to heuristics
	MLConfidenceFloor float64 // Minimum model confidence before blending (uncalibrated, tunable)

	// Scanner
	ScanInterval   time.Duration
	AlertThreshold float64 // Score at which the scanner raises an alert

	// Rate limiting
	TransfersPerMinute  int
	MinTransferInterval time.Duration
	RateLimitRPM        int // General API limit per client

	// Tracing
	OTLPEndpoint string

	// Security
	AdminSecret string // Admin API secret
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultRPCURL         = "https://eth-mainnet.g.alchemy.com/v2/demo"
	DefaultFetchLimit     = 100
	DefaultScanInterval   = 10 * time.Second
	DefaultAlertThreshold = 80.0
	DefaultRateLimit      = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RPCURL:              getEnv("RPC_URL", DefaultRPCURL),
		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		FetchLimit:          int(getEnvInt64("FETCH_LIMIT", DefaultFetchLimit)),
		ModelPath:           os.Getenv("MODEL_PATH"), // Optional, heuristics-only if not set
		MLConfidenceFloor:   getEnvFloat("ML_CONFIDENCE_FLOOR", 0.3),
		ScanInterval:        getEnvDuration("SCAN_INTERVAL", DefaultScanInterval),
		AlertThreshold:      getEnvFloat("ALERT_THRESHOLD", DefaultAlertThreshold),
		TransfersPerMinute:  int(getEnvInt64("TRANSFERS_PER_MINUTE", 10)),
		MinTransferInterval: getEnvDuration("MIN_TRANSFER_INTERVAL", 10*time.Second),
		RateLimitRPM:        int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AdminSecret:         os.Getenv("ADMIN_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.FetchLimit <= 0 {
		return fmt.Errorf("FETCH_LIMIT must be positive")
	}
	if c.MLConfidenceFloor < 0 || c.MLConfidenceFloor > 1 {
		return fmt.Errorf("ML_CONFIDENCE_FLOOR must be in [0, 1]")
	}
	if c.AlertThreshold < 0 || c.AlertThreshold > 100 {
		return fmt.Errorf("ALERT_THRESHOLD must be in [0, 100]")
	}
	if c.ScanInterval < time.Second {
		return fmt.Errorf("SCAN_INTERVAL must be at least 1s")
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
