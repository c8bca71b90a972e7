// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	LogLevel string
	Port     int
	DevMode  bool

	// Analytics defaults. Each is overridable per request; these feed the
	// engine when a request omits the parameter.
	AnomalyLookbackMonths int             // baseline window for anomaly detection
	AnomalyRecentMonths   int             // window of transactions scored against the baseline
	AnomalyAbsoluteFloor  decimal.Decimal // minimum amount above the mean before flagging
	OutlierFilterMaxDrop  float64         // fraction of a sample IQR filtering may discard before falling back
	MaxBatchSize          int             // largest accepted transaction batch per request
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		DevMode:               getEnvAsBool("DEV_MODE", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AnomalyLookbackMonths: getEnvAsInt("ANOMALY_LOOKBACK_MONTHS", 6),
		AnomalyRecentMonths:   getEnvAsInt("ANOMALY_RECENT_MONTHS", 1),
		AnomalyAbsoluteFloor:  getEnvAsDecimal("ANOMALY_ABSOLUTE_FLOOR", decimal.NewFromInt(20)),
		OutlierFilterMaxDrop:  getEnvAsFloat("OUTLIER_FILTER_MAX_DROP", 0.5),
		MaxBatchSize:          getEnvAsInt("MAX_BATCH_SIZE", 100000),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.AnomalyLookbackMonths < 1 {
		return fmt.Errorf("ANOMALY_LOOKBACK_MONTHS must be at least 1, got %d", c.AnomalyLookbackMonths)
	}
	if c.AnomalyRecentMonths < 1 {
		return fmt.Errorf("ANOMALY_RECENT_MONTHS must be at least 1, got %d", c.AnomalyRecentMonths)
	}
	if c.OutlierFilterMaxDrop <= 0 || c.OutlierFilterMaxDrop > 1 {
		return fmt.Errorf("OUTLIER_FILTER_MAX_DROP must be in (0, 1], got %f", c.OutlierFilterMaxDrop)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", c.MaxBatchSize)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if decVal, err := decimal.NewFromString(value); err == nil {
			return decVal
		}
	}
	return defaultValue
}
