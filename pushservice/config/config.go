package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type DispatchConfig struct {
	BatchLimit  int
	Concurrency int
}

type PollerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID      string
	ListenAddr     string
	SubscriptionID string

	Redis    RedisConfig
	Dispatch DispatchConfig
	Poller   PollerConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// Dispatch Overrides
	if val := os.Getenv("BATCH_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
			logger.Debug("Overriding config value", "key", "BATCH_LIMIT", "source", "env")
			cfg.Dispatch.BatchLimit = limit
		}
	}
	if val := os.Getenv("DISPATCH_CONCURRENCY"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "DISPATCH_CONCURRENCY", "source", "env")
			cfg.Dispatch.Concurrency = workers
		}
	}

	// Poller Overrides
	if val := os.Getenv("POLL_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil && interval > 0 {
			logger.Debug("Overriding config value", "key", "POLL_INTERVAL", "source", "env")
			cfg.Poller.Interval = interval
		}
	}
	if val := os.Getenv("POLL_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			logger.Debug("Overriding config value", "key", "POLL_BATCH_SIZE", "source", "env")
			cfg.Poller.BatchSize = size
		}
	}

	// Final validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Dispatch.BatchLimit <= 0 {
		cfg.Dispatch.BatchLimit = 500
	}
	if cfg.Dispatch.Concurrency <= 0 {
		cfg.Dispatch.Concurrency = 4
	}
	if cfg.Poller.Interval <= 0 {
		cfg.Poller.Interval = time.Minute
	}
	if cfg.Poller.BatchSize <= 0 {
		cfg.Poller.BatchSize = 50
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
