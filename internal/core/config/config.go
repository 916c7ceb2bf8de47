// Package config handles configuration loading and validation for partyline.
package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/partyline/internal/core/board"
	"github.com/hay-kot/partyline/internal/store/tablefile"
)

// Config holds the application configuration.
type Config struct {
	Table TableConfig `yaml:"table"`
	Round RoundConfig `yaml:"round"`
}

// TableConfig holds table file settings.
type TableConfig struct {
	// Paths are tried in order; the first existing file is used.
	Paths []string `yaml:"paths" env:"PARTYLINE_TABLE_PATHS"`
	// FetchWindow is how many trailing records a view request considers.
	FetchWindow int `yaml:"fetch_window" env:"PARTYLINE_FETCH_WINDOW"`
}

// RoundConfig holds per-round processing settings.
type RoundConfig struct {
	MaxRequestBytes int `yaml:"max_request_bytes" env:"PARTYLINE_MAX_REQUEST_BYTES"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table: TableConfig{
			Paths:       slices.Clone(tablefile.DefaultPaths),
			FetchWindow: board.DefaultFetchWindow,
		},
		Round: RoundConfig{
			MaxRequestBytes: board.DefaultMaxRequestBytes,
		},
	}
}

// Load reads configuration from the given path and applies environment
// overrides. If configPath is empty or doesn't exist, defaults are used.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if len(c.Table.Paths) == 0 {
		c.Table.Paths = defaults.Table.Paths
	}
	if c.Table.FetchWindow == 0 {
		c.Table.FetchWindow = defaults.Table.FetchWindow
	}
	if c.Round.MaxRequestBytes == 0 {
		c.Round.MaxRequestBytes = defaults.Round.MaxRequestBytes
	}
}
