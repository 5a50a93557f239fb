package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the worker configuration read from a YAML file. Flags override it.
type Config struct {
	// Level is the zlib compression level, from -2 (Huffman only) to 9.
	Level *int `yaml:"level"`
	// LogLevel is one of debug, info, warn and error.
	LogLevel string `yaml:"log_level"`
	// MetricsAddr is the address serving Prometheus metrics. Empty disables the server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Level == nil {
		level := -1
		c.Level = &level
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if *c.Level < -2 || *c.Level > 9 {
		return fmt.Errorf("level must be between -2 and 9, got %d", *c.Level)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}
