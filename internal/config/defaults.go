package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if cfg.Search.DefaultSources == nil {
		cfg.Search.DefaultSources = []string{"duckduckgo"}
	}
	if cfg.Search.DefaultLanguages == nil {
		cfg.Search.DefaultLanguages = []string{"en", "it"}
	}
	if cfg.Search.DefaultMaxResults == 0 {
		cfg.Search.DefaultMaxResults = 20
	}
	if cfg.Search.DefaultPageSize == 0 {
		cfg.Search.DefaultPageSize = 10
	}
	if cfg.Search.SourceTimeout == 0 {
		cfg.Search.SourceTimeout = Duration(10 * time.Second)
	}
	if cfg.Search.MaxRetries == 0 {
		cfg.Search.MaxRetries = 2
	}
	if cfg.Search.RetryDelay == 0 {
		cfg.Search.RetryDelay = Duration(500 * time.Millisecond)
	}
	if cfg.Search.MaxConcurrent == 0 {
		cfg.Search.MaxConcurrent = 10
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = Duration(30 * time.Minute)
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "/usr/local/var/matome/data/history.db"
	}
	if cfg.Archive.Path == "" {
		cfg.Archive.Path = "/usr/local/var/matome/data/archive.bleve"
	}
}
