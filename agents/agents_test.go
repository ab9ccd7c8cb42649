package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m0rjc/cyberalchemy/store"
)

func newTestRegistry() *Registry {
	return NewRegistry(store.NewMemoryStorage())
}

// Test: Create fills defaults and stores the agent
func TestRegistry_Create(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	created, err := registry.Create(ctx, Config{Name: "  Alice ", Description: "helper"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.Name != "Alice" {
		t.Errorf("Expected trimmed name 'Alice', got '%s'", created.Name)
	}
	if len(created.AgentID) != 32 || strings.Contains(created.AgentID, "-") {
		t.Errorf("Expected a hex ID, got '%s'", created.AgentID)
	}
	if created.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("Expected the default prompt, got '%s'", created.SystemPrompt)
	}

	loaded, err := registry.Get(ctx, created.AgentID)
	if err != nil || loaded != created {
		t.Errorf("Expected %+v, got %+v (%v)", created, loaded, err)
	}
}

// Test: Create rejects duplicate and reserved names and re-rolls colliding IDs
func TestRegistry_CreateConflicts(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()
	first, _ := registry.Create(ctx, Config{AgentID: "fixed", Name: "Alice"})

	tests := []struct {
		name     string
		config   Config
		expected error
	}{
		{name: "duplicate_name", config: Config{Name: "Alice"}, expected: ErrDuplicateName},
		{name: "reserved_name", config: Config{Name: ManagerName}, expected: ErrDuplicateName},
		{name: "missing_name", config: Config{Name: "  "}, expected: ErrMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := registry.Create(ctx, tt.config); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	second, err := registry.Create(ctx, Config{AgentID: first.AgentID, Name: "Bob"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second.AgentID == first.AgentID {
		t.Error("Expected the colliding ID to be replaced")
	}
	if got, _ := registry.Get(ctx, first.AgentID); got.Name != "Alice" {
		t.Errorf("Expected Alice to survive, got %+v", got)
	}
}

// Test: Lookups, listing and deletion
func TestRegistry_Lookups(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()
	alice, _ := registry.Create(ctx, Config{Name: "Alice"})
	registry.Create(ctx, Config{Name: "Bob"})

	if got, err := registry.GetByName(ctx, "Alice"); err != nil || got.AgentID != alice.AgentID {
		t.Errorf("Expected Alice by name, got %+v (%v)", got, err)
	}
	if _, err := registry.GetByName(ctx, "Carol"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Expected ErrAgentNotFound, got %v", err)
	}
	if manager, err := registry.Get(ctx, ManagerName); err != nil || !manager.IsManager() {
		t.Errorf("Expected the manager config, got %+v (%v)", manager, err)
	}
	if manager, err := registry.GetByName(ctx, ManagerName); err != nil || !manager.IsManager() {
		t.Errorf("Expected the manager by name, got %+v (%v)", manager, err)
	}
	if err := registry.Delete(ctx, ManagerName); !errors.Is(err, ErrReservedAgent) {
		t.Errorf("Expected ErrReservedAgent on delete, got %v", err)
	}
	if err := registry.Save(ctx, Manager()); !errors.Is(err, ErrReservedAgent) {
		t.Errorf("Expected ErrReservedAgent on save, got %v", err)
	}

	all, _ := registry.List(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 agents, got %d", len(all))
	}

	if err := registry.Delete(ctx, alice.AgentID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := registry.Get(ctx, alice.AgentID); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Expected ErrAgentNotFound after delete, got %v", err)
	}
}

// Test: Undecodable records are skipped by List
func TestRegistry_ListSkipsBadRecords(t *testing.T) {
	storage := store.NewMemoryStorage()
	registry := NewRegistry(storage)
	ctx := context.Background()
	registry.Create(ctx, Config{Name: "Alice"})
	storage.Save(ctx, "agent_broken", "not an object")

	all, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 agent, got %d", len(all))
	}
}

// Test: Instructions append identity and turn-taking guidance
func TestConfig_Instructions(t *testing.T) {
	got := Config{Name: "Alice"}.Instructions()

	if !strings.HasPrefix(got, DefaultSystemPrompt) {
		t.Errorf("Expected the default prompt first, got %q", got)
	}
	if !strings.Contains(got, "Your name is Alice.") || !strings.Contains(got, "TERMINATE") {
		t.Errorf("Expected identity and terminate instructions, got %q", got)
	}
}
