// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	PortfolioPath  string
	BackupDir      string
	HistoryDBPath  string
	CacheDBPath    string
	S3BackupBucket string
	S3BackupPrefix string
	LogLevel       string
	Port           int
	OracleTimeout  time.Duration
	QuoteCacheTTL  time.Duration
	DevMode        bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8000),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		PortfolioPath:  getEnv("PORTFOLIO_PATH", "portfolio.json"),
		BackupDir:      getEnv("BACKUP_DIR", ""),
		HistoryDBPath:  getEnv("HISTORY_DB_PATH", "./data/history.db"),
		CacheDBPath:    getEnv("CACHE_DB_PATH", "./data/cache.db"),
		S3BackupBucket: getEnv("S3_BACKUP_BUCKET", ""),
		S3BackupPrefix: getEnv("S3_BACKUP_PREFIX", "folio-backups"),
		OracleTimeout:  getEnvAsDuration("ORACLE_TIMEOUT", 10*time.Second),
		QuoteCacheTTL:  getEnvAsDuration("QUOTE_CACHE_TTL", 15*time.Minute),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Backups sit next to the portfolio file unless overridden
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Dir(cfg.PortfolioPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.PortfolioPath == "" {
		return fmt.Errorf("PORTFOLIO_PATH is required")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
