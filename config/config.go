// Package config loads the exchange daemon configuration from an
// optional yaml file and CROSSLINE_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full daemon configuration.
type Config struct {
	// ListenAddr is the TCP address the exchange listens on.
	ListenAddr string `mapstructure:"listen_addr"`

	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Tickers lists the instruments traded on the exchange.
	Tickers []string `mapstructure:"tickers"`

	// Workers is the amount of connection handling goroutines.
	Workers int `mapstructure:"workers"`

	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
}

// Load reads the configuration from the given file path. An empty path
// loads defaults and environment overrides only.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("tickers", []string{"AAPL", "GOOG", "MSFT"})
	v.SetDefault("workers", 4)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("CROSSLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Tickers) == 0 {
		return Config{}, fmt.Errorf("config: at least one ticker is required")
	}
	if cfg.Workers <= 0 {
		return Config{}, fmt.Errorf("config: workers must be positive")
	}
	return cfg, nil
}
