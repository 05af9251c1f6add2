// Package config loads runtime configuration for the backtesting engine.
//
// Configuration is loaded from environment variables, optionally preceded by
// a .env file (github.com/joho/godotenv).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aristath/stratbacktest/internal/backtest"
	"github.com/aristath/stratbacktest/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds application configuration for the backtest HTTP server.
type Config struct {
	Port      int    // HTTP server port
	LogLevel  string // zerolog level name (debug, info, warn, error)
	LogPretty bool   // pretty console logging vs. JSON

	DataDir string // base directory for the response-cache SQLite file and any on-disk artifacts

	DefaultBenchmarkTicker domain.TickerKey // used when a request omits benchmarkTicker
	DefaultCostBps         float64          // used when a request omits costBps

	WorkerPoolSize int // goroutines in the batch-evaluation pool (internal/batch)
}

// Load reads configuration from environment variables, preceded by a .env
// file if one exists (godotenv.Load() error on a missing file is ignored).
//
// dataDirOverride, if non-empty, takes priority over the STRATBACKTEST_DATA_DIR
// environment variable and the "./data" default.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("STRATBACKTEST_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		Port:                   getEnvAsInt("PORT", 8080),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getEnvAsBool("LOG_PRETTY", true),
		DataDir:                absDataDir,
		DefaultBenchmarkTicker: domain.NormalizeTicker(getEnv("DEFAULT_BENCHMARK_TICKER", string(backtest.DefaultBenchmarkTicker))),
		DefaultCostBps:         getEnvAsFloat("DEFAULT_COST_BPS", 0),
		WorkerPoolSize:         getEnvAsInt("WORKER_POOL_SIZE", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants on loaded configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("invalid WORKER_POOL_SIZE %d", c.WorkerPoolSize)
	}
	return nil
}

// RespCachePath is the on-disk path of the response-cache SQLite database.
func (c *Config) RespCachePath() string {
	return filepath.Join(c.DataDir, "respcache.db")
}

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
