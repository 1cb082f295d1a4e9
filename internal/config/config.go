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

	// Analysis settings
	AnalysisWorkers int           // parallel scoring workers per analysis run
	StorageTimeout  time.Duration // bound on individual storage operations

	// Risk classification thresholds (documented defaults, see internal/scoring)
	HighRiskThreshold   float64
	MediumRiskThreshold float64
	FeatureTrigger      float64 // per-feature reason trigger
	MinBaselineSamples  int     // below this, stddev is treated as undefined

	// Rate limiting
	RateLimitRPM int

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled when empty
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultWorkers         = 4
	DefaultStorageTimeout  = 5 * time.Second
	DefaultHighThreshold   = 0.75
	DefaultMediumThreshold = 0.45
	DefaultFeatureTrigger  = 0.6
	DefaultMinSamples      = 5
	DefaultRateLimit       = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		AnalysisWorkers:     getEnvInt("ANALYSIS_WORKERS", DefaultWorkers),
		StorageTimeout:      getEnvDuration("STORAGE_TIMEOUT", DefaultStorageTimeout),
		HighRiskThreshold:   getEnvFloat("RISK_HIGH_THRESHOLD", DefaultHighThreshold),
		MediumRiskThreshold: getEnvFloat("RISK_MEDIUM_THRESHOLD", DefaultMediumThreshold),
		FeatureTrigger:      getEnvFloat("RISK_FEATURE_TRIGGER", DefaultFeatureTrigger),
		MinBaselineSamples:  getEnvInt("BASELINE_MIN_SAMPLES", DefaultMinSamples),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.AnalysisWorkers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be at least 1")
	}
	if c.HighRiskThreshold <= c.MediumRiskThreshold {
		return fmt.Errorf("RISK_HIGH_THRESHOLD (%v) must be greater than RISK_MEDIUM_THRESHOLD (%v)",
			c.HighRiskThreshold, c.MediumRiskThreshold)
	}
	if c.MediumRiskThreshold <= 0 || c.HighRiskThreshold > 1 {
		return fmt.Errorf("risk thresholds must lie in (0, 1]")
	}
	if c.MinBaselineSamples < 2 {
		return fmt.Errorf("BASELINE_MIN_SAMPLES must be at least 2")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
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
