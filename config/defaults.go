package config

import "time"

const (
	DefaultReasoningModel  = "o4-mini"
	DefaultSimpleTaskModel = "gpt-4.1-mini"
	DefaultAPIVersion      = "2024-12-01-preview"
	DefaultProviderTimeout = 60 * time.Second

	DefaultMinMessages    = 20
	DefaultMaxMessages    = 50
	DefaultSummaryTimeout = 60 * time.Second

	DefaultStorageType = StorageJSON
	DefaultDirectory   = "data"
	DefaultSQLitePath  = "data/cyberalchemy.db"

	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Default returns a configuration holding only defaults.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Provider.AzureAPIVersion == "" {
		cfg.Provider.AzureAPIVersion = DefaultAPIVersion
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}

	if cfg.Models.Reasoning == "" {
		cfg.Models.Reasoning = DefaultReasoningModel
	}
	if cfg.Models.SimpleTask == "" {
		cfg.Models.SimpleTask = DefaultSimpleTaskModel
	}

	if cfg.Archive.MinMessages == 0 {
		cfg.Archive.MinMessages = DefaultMinMessages
	}
	if cfg.Archive.MaxMessages == 0 {
		cfg.Archive.MaxMessages = DefaultMaxMessages
	}
	if cfg.Archive.SummaryTimeout == 0 {
		cfg.Archive.SummaryTimeout = DefaultSummaryTimeout
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = DefaultStorageType
	}
	if cfg.Storage.Directory == "" {
		cfg.Storage.Directory = DefaultDirectory
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
