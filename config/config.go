// Package config provides configuration loading and management for Vistaflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Vistaflow configuration
type Config struct {
	NATS   NATSConfig   `yaml:"nats"`
	Review ReviewConfig `yaml:"review"`
	Log    LogConfig    `yaml:"log"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
	// RequestTimeout bounds request/reply calls to other components
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ReviewConfig configures the generation-and-review cycle
type ReviewConfig struct {
	// MaxAttempts is the automated retry budget per asset
	MaxAttempts int `yaml:"max_attempts"`
	// AutoQA applies automated QA verdicts directly instead of waiting for
	// a human decision (default: false, human review required)
	AutoQA bool `yaml:"auto_qa"`
}

// LogConfig configures structured logging
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (text or json)
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:            "",
			Embedded:       true,
			RequestTimeout: 30 * time.Second,
		},
		Review: ReviewConfig{
			MaxAttempts: 5,
			AutoQA:      false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Review.MaxAttempts < 1 {
		return fmt.Errorf("review.max_attempts must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.RequestTimeout != 0 {
		c.NATS.RequestTimeout = other.NATS.RequestTimeout
	}

	// Review
	if other.Review.MaxAttempts != 0 {
		c.Review.MaxAttempts = other.Review.MaxAttempts
	}
	if other.Review.AutoQA {
		c.Review.AutoQA = true
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
