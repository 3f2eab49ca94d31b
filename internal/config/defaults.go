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
	if cfg.Server.SearchTimeout == 0 {
		cfg.Server.SearchTimeout = 5 * time.Second
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./search/index.okt"
	}
	if cfg.Index.Debounce == 0 {
		cfg.Index.Debounce = 500 * time.Millisecond
	}
	if cfg.Index.Stemmer == "" {
		cfg.Index.Stemmer = "english"
	}
	// Watch defaults to true when unset (nil).
	if cfg.Index.Watch == nil {
		t := true
		cfg.Index.Watch = &t
	}
	if cfg.Storage.Metadata == "" {
		cfg.Storage.Metadata = MetadataMemory
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./search/metadata.db"
	}
	if cfg.Search.EntriesPerPage == 0 {
		cfg.Search.EntriesPerPage = 10
	}
	if cfg.Search.SnippetWidth == 0 {
		cfg.Search.SnippetWidth = 250
	}
	if cfg.Search.Style == "" {
		cfg.Search.Style = "html"
	}
	if cfg.Search.ProposalCacheSize == 0 {
		cfg.Search.ProposalCacheSize = 256
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
