// Package config loads the cyberalchemy configuration from YAML, .env files and the environment.
package config

import (
	"time"

	"github.com/m0rjc/cyberalchemy"
)

// Config is the complete application configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Models   ModelsConfig   `yaml:"models"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig selects OpenAI or, when AzureEndpoint is set, Azure OpenAI.
type ProviderConfig struct {
	APIKey          string            `yaml:"api_key"`
	BaseURL         string            `yaml:"base_url"`
	AzureEndpoint   string            `yaml:"azure_endpoint"`
	AzureAPIVersion string            `yaml:"azure_api_version"`
	Deployments     map[string]string `yaml:"deployments"` // model name -> Azure deployment
	Timeout         time.Duration     `yaml:"timeout"`
}

// IsAzure reports whether requests go to Azure OpenAI.
func (p ProviderConfig) IsAzure() bool {
	return p.AzureEndpoint != ""
}

// Deployment returns the Azure deployment serving model. Unmapped models deploy under their own name.
func (p ProviderConfig) Deployment(model string) string {
	if d := p.Deployments[model]; d != "" {
		return d
	}
	return model
}

// ModelsConfig names the model answering users and the cheaper one writing summaries.
type ModelsConfig struct {
	Reasoning  string `yaml:"reasoning"`
	SimpleTask string `yaml:"simple_task"`
}

// ArchiveConfig holds the rolling window bounds.
type ArchiveConfig struct {
	Enabled        *bool         `yaml:"enabled"`
	MinMessages    int           `yaml:"min_messages"`
	MaxMessages    int           `yaml:"max_messages"`
	SummaryTimeout time.Duration `yaml:"summary_timeout"`
	Prompt         string        `yaml:"prompt"` // Replaces the default summary prompt; two %s slots
}

// IsEnabled reports whether archiving is on. It defaults to on.
func (a ArchiveConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// Bounds returns the window bounds.
func (a ArchiveConfig) Bounds() cyberalchemy.WindowBounds {
	return cyberalchemy.WindowBounds{MinMessages: a.MinMessages, MaxMessages: a.MaxMessages}
}

// StorageConfig selects where agents and conversations are kept.
type StorageConfig struct {
	Type       string `yaml:"type"` // "json", "sqlite" or "memory"
	Directory  string `yaml:"directory"`
	SQLitePath string `yaml:"sqlite_path"`
}

type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
