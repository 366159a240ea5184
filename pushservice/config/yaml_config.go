package config

import (
	"log/slog"
	"time"
)

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlDispatchConfig struct {
	BatchLimit  int `yaml:"batch_limit"`
	Concurrency int `yaml:"concurrency"`
}

type YamlPollerConfig struct {
	Interval  string `yaml:"interval"`
	BatchSize int    `yaml:"batch_size"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID      string             `yaml:"project_id"`
	ListenAddr     string             `yaml:"listen_addr"`
	SubscriptionID string             `yaml:"subscription_id"`
	RedisConfig    YamlRedisConfig    `yaml:"redis"`
	DispatchConfig YamlDispatchConfig `yaml:"dispatch"`
	PollerConfig   YamlPollerConfig   `yaml:"poller"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:      baseCfg.ProjectID,
		ListenAddr:     baseCfg.ListenAddr,
		SubscriptionID: baseCfg.SubscriptionID,
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		Dispatch: DispatchConfig{
			BatchLimit:  baseCfg.DispatchConfig.BatchLimit,
			Concurrency: baseCfg.DispatchConfig.Concurrency,
		},
		Poller: PollerConfig{
			BatchSize: baseCfg.PollerConfig.BatchSize,
		},
	}

	if baseCfg.PollerConfig.Interval != "" {
		interval, err := time.ParseDuration(baseCfg.PollerConfig.Interval)
		if err != nil {
			logger.Warn("Invalid poller interval in YAML, using default", "value", baseCfg.PollerConfig.Interval)
		} else {
			cfg.Poller.Interval = interval
		}
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"subscription_id", cfg.SubscriptionID,
	)

	return cfg, nil
}
