// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the run database (always absolute)
	BackendWSURL     string // Optional remote simulator backend websocket URL
	LogLevel         string
	Port             int
	DevMode          bool
	SimulatorWorkers int     // Worker goroutines used by the expectation oracle
	FiniteDiffDelta  float64 // Default finite-difference step for the HTTP API
	RunRetentionDays int     // Completed runs older than this are pruned
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to an absolute path and ensure it exists
	dataDir := getEnv("QVAR_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("QVAR_PORT", 8010),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		BackendWSURL:     getEnv("BACKEND_WS_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SimulatorWorkers: getEnvAsInt("SIMULATOR_WORKERS", 0), // 0 = runtime.NumCPU()
		FiniteDiffDelta:  getEnvAsFloat("FINITE_DIFF_DELTA", 1e-4),
		RunRetentionDays: getEnvAsInt("RUN_RETENTION_DAYS", 30),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.FiniteDiffDelta <= 0 {
		return fmt.Errorf("FINITE_DIFF_DELTA must be positive, got %g", c.FiniteDiffDelta)
	}
	if c.RunRetentionDays < 0 {
		return fmt.Errorf("RUN_RETENTION_DAYS must not be negative, got %d", c.RunRetentionDays)
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
