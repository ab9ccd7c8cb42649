// Package agents manages agent configurations and the tools that let a model manage them.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/m0rjc/cyberalchemy/store"
)

const (
	// DefaultSystemPrompt is used when a config has no prompt of its own.
	DefaultSystemPrompt = "You are a helpful assistant."

	// ManagerName is the reserved agent that manages the other agents.
	ManagerName = "AgentManager"

	keyPrefix = "agent_"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrDuplicateName = errors.New("agent name already exists")
	ErrMissingName   = errors.New("agent name is required")
	ErrReservedAgent = errors.New("agent manager cannot be modified")
)

// Config describes one agent.
type Config struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

// NewID returns a fresh agent ID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// withDefaults fills the ID and system prompt when missing.
func (c Config) withDefaults() Config {
	if c.AgentID == "" {
		c.AgentID = NewID()
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}

// Manager is the config of the reserved agent manager.
func Manager() Config {
	return Config{
		AgentID:      ManagerName,
		Name:         ManagerName,
		Description:  "Manages agent configurations, including read, create and list.",
		SystemPrompt: ManagerPrompt,
	}
}

// IsManager reports whether c is the reserved agent manager.
func (c Config) IsManager() bool {
	return c.AgentID == ManagerName
}

// Registry stores agent configurations.
type Registry struct {
	storage store.Storage
}

func NewRegistry(storage store.Storage) *Registry {
	return &Registry{storage: storage}
}

func key(id string) string {
	return keyPrefix + id
}

// List returns every stored agent. Records that fail to decode are logged and skipped.
func (r *Registry) List(ctx context.Context) ([]Config, error) {
	records, err := r.storage.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	configs := make([]Config, 0, len(records))
	for _, raw := range records {
		var config Config
		if err := json.Unmarshal(raw, &config); err != nil || config.AgentID == "" {
			slog.ErrorContext(ctx, "invalid_agent_config", "error", err)
			continue
		}
		configs = append(configs, config)
	}
	return configs, nil
}

// Get returns the agent with the given ID. The manager is always available.
func (r *Registry) Get(ctx context.Context, id string) (Config, error) {
	if id == ManagerName {
		return Manager(), nil
	}
	var config Config
	err := r.storage.Load(ctx, key(id), &config)
	if errors.Is(err, store.ErrNotFound) {
		return Config{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load agent %s: %w", id, err)
	}
	return config, nil
}

// GetByName returns the first stored agent with the given name.
func (r *Registry) GetByName(ctx context.Context, name string) (Config, error) {
	if name == ManagerName {
		return Manager(), nil
	}
	configs, err := r.List(ctx)
	if err != nil {
		return Config{}, err
	}
	for _, config := range configs {
		if config.Name == name {
			return config, nil
		}
	}
	return Config{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
}

// Save stores config as is, replacing any agent with the same ID.
func (r *Registry) Save(ctx context.Context, config Config) error {
	if config.AgentID == "" {
		return fmt.Errorf("save agent: empty ID")
	}
	if config.AgentID == ManagerName {
		return ErrReservedAgent
	}
	if err := r.storage.Save(ctx, key(config.AgentID), config); err != nil {
		return fmt.Errorf("save agent %s: %w", config.AgentID, err)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	if id == ManagerName {
		return ErrReservedAgent
	}
	if err := r.storage.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}

// Create stores a new agent. A colliding ID is replaced with a fresh one;
// a name already taken, or reserved, is rejected with ErrDuplicateName.
func (r *Registry) Create(ctx context.Context, config Config) (Config, error) {
	config.Name = strings.TrimSpace(config.Name)
	if config.Name == "" {
		return Config{}, ErrMissingName
	}
	config = config.withDefaults()

	existing, err := r.List(ctx)
	if err != nil {
		return Config{}, err
	}
	ids := map[string]bool{ManagerName: true}
	for _, other := range existing {
		ids[other.AgentID] = true
		if other.Name == config.Name {
			return Config{}, fmt.Errorf("%w: %s", ErrDuplicateName, config.Name)
		}
	}
	if config.Name == ManagerName {
		return Config{}, fmt.Errorf("%w: %s", ErrDuplicateName, config.Name)
	}
	for ids[config.AgentID] {
		config.AgentID = NewID()
	}

	if err := r.Save(ctx, config); err != nil {
		return Config{}, err
	}
	return config, nil
}
