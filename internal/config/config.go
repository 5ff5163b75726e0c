// Package config provides configuration loading and structs for the lostfound server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Vector  VectorConfig  `yaml:"vector"`
	Match   MatchConfig   `yaml:"match"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Record store backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// StorageConfig holds the record store backend and the paths for records and the index.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	ItemsPath    string `yaml:"items_path"`
	IndexPath    string `yaml:"index_path"`
	IDMapPath    string `yaml:"id_map_path"`
}

// VectorConfig holds vector index settings. Dimensions is fixed per deployment.
type VectorConfig struct {
	IndexType  string `yaml:"index_type"`
	Dimensions int    `yaml:"dimensions"`
}

// MatchConfig holds matching settings.
type MatchConfig struct {
	// ScoreThreshold is the floor for any returned match (inclusive).
	ScoreThreshold float64 `yaml:"score_threshold"`
	TopK           int     `yaml:"top_k"`
	MaxTopK        int     `yaml:"max_top_k"`
}

// WatchConfig controls the record-store watcher (json backend only).
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
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
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.ItemsPath = expandPath(cfg.Storage.ItemsPath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.IDMapPath = expandPath(cfg.Storage.IDMapPath, configDir)

	return &cfg, nil
}

// Validate rejects settings that cannot be served.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: sqlite, json)", cfg.Storage.Backend)
	}
	switch cfg.Vector.IndexType {
	case "", "memory", "faiss":
	default:
		return fmt.Errorf("unknown vector index type: %s (supported: memory, faiss)", cfg.Vector.IndexType)
	}
	if cfg.Vector.Dimensions < 0 {
		return fmt.Errorf("vector dimensions must be positive, got %d", cfg.Vector.Dimensions)
	}
	if cfg.Match.ScoreThreshold < 0 {
		return fmt.Errorf("score threshold must not be negative, got %f", cfg.Match.ScoreThreshold)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
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
