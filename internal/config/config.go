// Package config provides configuration loading and structs for the Matome server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "500ms" parse
// directly into config fields.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// SearchConfig holds request defaults and fan-out settings.
type SearchConfig struct {
	DefaultSources    []string `yaml:"default_sources"`
	DefaultLanguages  []string `yaml:"default_languages"`
	DefaultMaxResults int      `yaml:"default_max_results"`
	DefaultPageSize   int      `yaml:"default_page_size"`
	SourceTimeout     Duration `yaml:"source_timeout"`
	// MaxRetries counts retries after the first attempt.
	MaxRetries    int      `yaml:"max_retries"`
	RetryDelay    Duration `yaml:"retry_delay"`
	MaxConcurrent int      `yaml:"max_concurrent"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// StorageConfig holds the search history database path.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ArchiveConfig holds the local full-text archive settings.
type ArchiveConfig struct {
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled"`
}

// EnabledOrDefault returns whether the archive is active; defaults to true when unset.
func (a *ArchiveConfig) EnabledOrDefault() bool {
	if a.Enabled != nil {
		return *a.Enabled
	}
	return true
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
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

	configDir := filepath.Dir(path)
	cfg.Storage.Path = expandPath(cfg.Storage.Path, configDir)
	cfg.Archive.Path = expandPath(cfg.Archive.Path, configDir)

	return &cfg, nil
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
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
