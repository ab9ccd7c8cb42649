package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CYBERALCHEMY_"

// Load builds the configuration: .env files into the environment, then the YAML file at path
// (skipped when path is empty), defaults, environment overrides and validation.
// Variables already set in the environment win over .env files.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads the named files, or ./.env when none are named. Missing files are ignored.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// applyEnvOverrides applies the provider's conventional variables and CYBERALCHEMY_SECTION_FIELD overrides.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Provider.APIKey, "OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", envPrefix+"PROVIDER_API_KEY")
	setString(&cfg.Provider.BaseURL, "OPENAI_BASE_URL", envPrefix+"PROVIDER_BASE_URL")
	setString(&cfg.Provider.AzureEndpoint, "AZURE_OPENAI_ENDPOINT", envPrefix+"PROVIDER_AZURE_ENDPOINT")
	setString(&cfg.Provider.AzureAPIVersion, "AZURE_OPENAI_APIVERSION", envPrefix+"PROVIDER_AZURE_API_VERSION")
	setDuration(&cfg.Provider.Timeout, envPrefix+"PROVIDER_TIMEOUT")

	setString(&cfg.Models.Reasoning, envPrefix+"MODELS_REASONING")
	setString(&cfg.Models.SimpleTask, envPrefix+"MODELS_SIMPLE_TASK")
	for _, model := range []string{cfg.Models.Reasoning, cfg.Models.SimpleTask} {
		if val := os.Getenv(deploymentVariable(model)); val != "" {
			if cfg.Provider.Deployments == nil {
				cfg.Provider.Deployments = make(map[string]string)
			}
			cfg.Provider.Deployments[model] = val
		}
	}

	if val := os.Getenv(envPrefix + "ARCHIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Archive.Enabled = &b
		}
	}
	setInt(&cfg.Archive.MinMessages, envPrefix+"ARCHIVE_MIN_MESSAGES")
	setInt(&cfg.Archive.MaxMessages, envPrefix+"ARCHIVE_MAX_MESSAGES")
	setDuration(&cfg.Archive.SummaryTimeout, envPrefix+"ARCHIVE_SUMMARY_TIMEOUT")

	setString(&cfg.Storage.Type, envPrefix+"STORAGE_TYPE")
	setString(&cfg.Storage.Directory, envPrefix+"STORAGE_DIRECTORY")
	setString(&cfg.Storage.SQLitePath, envPrefix+"STORAGE_SQLITE_PATH")

	setString(&cfg.Server.ListenAddress, envPrefix+"SERVER_LISTEN_ADDRESS")

	setString(&cfg.Log.Level, envPrefix+"LOG_LEVEL")
	setString(&cfg.Log.Format, envPrefix+"LOG_FORMAT")
}

// deploymentVariable is AZURE_OPENAI_<MODEL>_DEPLOYMENT, e.g. AZURE_OPENAI_GPT_4_1_MINI_DEPLOYMENT.
func deploymentVariable(model string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, model)
	return "AZURE_OPENAI_" + name + "_DEPLOYMENT"
}

// setString applies the last non-empty variable of names.
func setString(field *string, names ...string) {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			*field = val
		}
	}
}

func setInt(field *int, name string) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*field = i
		}
	}
}

func setDuration(field *time.Duration, name string) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*field = d
		}
	}
}
