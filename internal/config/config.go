// Package config provides configuration loading and structs for the fieldmap server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Conversion ConversionConfig `yaml:"conversion"`
	Indexing   IndexingConfig   `yaml:"indexing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the local keyword index location.
type StorageConfig struct {
	// BleveIndexPath is the on-disk index directory. Empty keeps the index in memory.
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ConversionConfig holds value conversion settings.
type ConversionConfig struct {
	// DateLayout is the Go time layout dates are rendered with in query strings.
	DateLayout string `yaml:"date_layout"`
	// TimeZone is the IANA zone used for dates parsed without an offset.
	TimeZone string `yaml:"time_zone"`
}

// IndexingConfig holds batch indexing settings.
type IndexingConfig struct {
	Workers int `yaml:"workers"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.BleveIndexPath != "" {
		cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, filepath.Dir(path))
	}
	return &cfg, nil
}

// Validate checks values ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Indexing.Workers < 0 {
		return fmt.Errorf("indexing workers cannot be negative")
	}
	if _, err := c.Conversion.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the configured time zone, UTC when unset.
func (c *ConversionConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
