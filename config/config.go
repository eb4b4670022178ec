// Package config handles loading and managing application configuration
// from YAML files, .env files, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults holds the encoding parameters used for the initial preview
// on startup, before the user touches any form control.
type Defaults struct {
	Payload    string `yaml:"payload"`
	Size       int    `yaml:"size"`
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	Level      string `yaml:"level"`
}

// Config holds all application configuration values.
type Config struct {
	Port     int      `yaml:"port"`
	DataDir  string   `yaml:"data_dir"`
	LogLevel string   `yaml:"log_level"`
	Defaults Defaults `yaml:"defaults"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:     8580,
		DataDir:  filepath.Join(homeDir, ".qrstudio"),
		LogLevel: "info",
		Defaults: Defaults{
			Payload:    "https://example.com",
			Size:       256,
			Foreground: "#000000",
			Background: "#ffffff",
			Level:      "medium",
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working
// directory is loaded first, then environment variables with the QRS_
// prefix override any file or default values.
func Load(path string) (*Config, error) {
	// Missing .env is fine; it only exists in dev setups.
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist — proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies QRS_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRS_DEFAULT_PAYLOAD"); v != "" {
		cfg.Defaults.Payload = v
	}
	if v := os.Getenv("QRS_DEFAULT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.Size = n
		}
	}
	if v := os.Getenv("QRS_DEFAULT_FOREGROUND"); v != "" {
		cfg.Defaults.Foreground = v
	}
	if v := os.Getenv("QRS_DEFAULT_BACKGROUND"); v != "" {
		cfg.Defaults.Background = v
	}
	if v := os.Getenv("QRS_DEFAULT_LEVEL"); v != "" {
		cfg.Defaults.Level = v
	}
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}
