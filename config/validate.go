package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m0rjc/cyberalchemy"
)

// ErrMissingAPIKey is returned by ValidateProvider when no API key is configured.
var ErrMissingAPIKey = errors.New("provider API key is required (set OPENAI_API_KEY)")

// Validate checks every section. The provider key is checked separately by ValidateProvider
// so that commands which never call a model work without one.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Archive.Bounds().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("archive: %w", err))
	}
	if c.Archive.SummaryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("archive: summary_timeout must be positive"))
	}
	if c.Archive.Prompt != "" {
		if err := cyberalchemy.ValidateArchivePrompt(c.Archive.Prompt); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("provider: timeout must be positive"))
	}
	if c.Models.Reasoning == "" || c.Models.SimpleTask == "" {
		errs = append(errs, fmt.Errorf("models: reasoning and simple_task are required"))
	}

	switch c.Storage.Type {
	case StorageJSON:
		if c.Storage.Directory == "" {
			errs = append(errs, fmt.Errorf("storage: directory is required for json storage"))
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("storage: sqlite_path is required for sqlite storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("storage: unknown type %q", c.Storage.Type))
	}

	if c.Server.ListenAddress == "" {
		errs = append(errs, fmt.Errorf("server: listen_address is required"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ValidateProvider checks the settings needed to call a model.
func (c *Config) ValidateProvider() error {
	if c.Provider.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// SlogLevel parses the configured level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("unknown level %q", l.Level)
	}
	return level, nil
}
