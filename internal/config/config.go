// Package config provides configuration loading and structs for the shiori server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata store backends.
const (
	MetadataMemory = "memory"
	MetadataSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Index   IndexConfig   `yaml:"index"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// SearchTimeout bounds how long a search waits for the index to load.
	SearchTimeout time.Duration `yaml:"search_timeout"`
}

// IndexConfig locates the index artifact and how it is loaded.
type IndexConfig struct {
	Path     string        `yaml:"path"`
	Watch    *bool         `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
	Stemmer  string        `yaml:"stemmer"`
}

// WatchOrDefault returns whether to watch the artifact for changes; defaults to true when unset.
func (i *IndexConfig) WatchOrDefault() bool {
	if i.Watch != nil {
		return *i.Watch
	}
	return true
}

// StorageConfig selects where document metadata is kept.
type StorageConfig struct {
	Metadata     string `yaml:"metadata"`
	DatabasePath string `yaml:"database_path"`
}

// SearchConfig holds result presentation settings.
type SearchConfig struct {
	EntriesPerPage    int    `yaml:"entries_per_page"`
	SnippetWidth      int    `yaml:"snippet_width"`
	Style             string `yaml:"style"`
	ProposalCacheSize int    `yaml:"proposal_cache_size"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or holds invalid values.
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

	configDir := filepath.Dir(path)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Search.EntriesPerPage < 0 {
		return fmt.Errorf("entries_per_page must be positive: %d", c.Search.EntriesPerPage)
	}
	switch c.Storage.Metadata {
	case MetadataMemory, MetadataSQLite:
	default:
		return fmt.Errorf("unknown metadata store %q: use %s or %s", c.Storage.Metadata, MetadataMemory, MetadataSQLite)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
