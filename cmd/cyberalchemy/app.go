package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/m0rjc/cyberalchemy/config"
	"github.com/m0rjc/cyberalchemy/conversation"
	"github.com/m0rjc/cyberalchemy/metrics"
	"github.com/m0rjc/cyberalchemy/openai"
	"github.com/m0rjc/cyberalchemy/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app is everything a command needs, built from the configuration.
type app struct {
	cfg      *config.Config
	storage  store.Storage
	registry *agents.Registry
	engine   *conversation.Engine
	metrics  *prometheus.Registry
}

// newApp wires storage, agents and the conversation engine. Model backends are only
// built when withModel is set, so that management commands need no API key.
func newApp(cfg *config.Config, withModel bool) (*app, error) {
	storage, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	chat := &cyberalchemy.Chat{SystemLogger: cyberalchemy.NewSlogSystemLogger()}
	if withModel {
		if err := cfg.ValidateProvider(); err != nil {
			storage.Close()
			return nil, err
		}
		if chat.Backend, err = newBackend(cfg, cfg.Models.Reasoning); err != nil {
			storage.Close()
			return nil, err
		}
		if cfg.Archive.IsEnabled() {
			summaries, err := newBackend(cfg, cfg.Models.SimpleTask)
			if err != nil {
				storage.Close()
				return nil, err
			}
			chat.Archive = &cyberalchemy.ArchiveConfig{
				Bounds:     cfg.Archive.Bounds(),
				Summarizer: &cyberalchemy.BackendSummarizer{
					Backend: summaries,
					Prompt:  cfg.Archive.Prompt,
					Timeout: cfg.Archive.SummaryTimeout,
				},
				Observer:   metrics.NewArchiveMetrics(registry),
			}
		}
	}

	agentRegistry := agents.NewRegistry(storage)
	return &app{
		cfg:      cfg,
		storage:  storage,
		registry: agentRegistry,
		engine:   conversation.NewEngine(storage, agentRegistry, chat),
		metrics:  registry,
	}, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}

// newStorage opens the configured store.
func newStorage(cfg config.StorageConfig) (store.Storage, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return store.NewMemoryStorage(), nil
	case config.StorageSQLite:
		return store.NewSQLStorage(cfg.SQLitePath)
	case config.StorageJSON:
		return store.NewJSONFileStorage(filepath.Clean(cfg.Directory))
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// newBackend builds an OpenAI or Azure OpenAI client for model.
func newBackend(cfg *config.Config, model string) (*openai.Client, error) {
	opts := []openai.ClientOption{
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Provider.Timeout}),
		openai.WithSystemLogger(cyberalchemy.NewSlogSystemLogger("model", model)),
		openai.WithModel(model),
	}
	if cfg.Provider.IsAzure() {
		opts = append(opts, openai.WithAzureDeployment(cfg.Provider.AzureEndpoint, cfg.Provider.Deployment(model), cfg.Provider.AzureAPIVersion))
	} else if cfg.Provider.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Provider.BaseURL))
	}
	client, err := openai.NewClient(cfg.Provider.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", model, err)
	}
	return client, nil
}

// setupLogging installs the configured slog handler as the default logger.
func setupLogging(cfg config.LogConfig, w io.Writer) {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// resolveAgents accepts agent IDs or names.
func (a *app) resolveAgents(ctx context.Context, refs []string) ([]agents.Config, error) {
	configs := make([]agents.Config, 0, len(refs))
	for _, ref := range refs {
		config, err := a.registry.Get(ctx, ref)
		if err != nil {
			if config, err = a.registry.GetByName(ctx, ref); err != nil {
				return nil, fmt.Errorf("unknown agent %q", ref)
			}
		}
		configs = append(configs, config)
	}
	return configs, nil
}
