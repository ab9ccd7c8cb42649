package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/agents"
	"github.com/m0rjc/cyberalchemy/aitooling"
	"github.com/m0rjc/cyberalchemy/store"
)

const keyPrefix = "conversation_"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyInput           = errors.New("message is empty")
)

// Engine starts, stores and advances conversations.
// Turns of one conversation run one at a time; different conversations run concurrently.
type Engine struct {
	storage  store.Storage
	registry *agents.Registry
	chat     *cyberalchemy.Chat
	now      func() time.Time

	mu    sync.Mutex
	turns map[string]*sync.Mutex
}

type EngineOption func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. chat carries the backend and archive configuration
// shared by every conversation.
func NewEngine(storage store.Storage, registry *agents.Registry, chat *cyberalchemy.Chat, opts ...EngineOption) *Engine {
	e := &Engine{
		storage:  storage,
		registry: registry,
		chat:     chat,
		now:      time.Now,
		turns:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func key(id string) string {
	return keyPrefix + id
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// turnLock returns the mutex serializing turns of one conversation.
func (e *Engine) turnLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.turns[id]
	if !ok {
		lock = &sync.Mutex{}
		e.turns[id] = lock
	}
	return lock
}

// Participants resolves agent IDs through the registry.
func (e *Engine) Participants(ctx context.Context, ids []string) ([]agents.Config, error) {
	configs := make([]agents.Config, 0, len(ids))
	for _, id := range ids {
		config, err := e.registry.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	return configs, nil
}

// Start creates and stores an empty conversation with the given participants.
func (e *Engine) Start(ctx context.Context, participants []agents.Config) (*Conversation, error) {
	now := e.now()
	conv := &Conversation{
		ID:        newID(),
		CreatedAt: now,
		UpdatedAt: now,
		Agents:    participants,
		Messages:  []Message{},
	}
	if conv.Agents == nil {
		conv.Agents = []agents.Config{}
	}
	if err := e.save(ctx, conv); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "conversation_started", "conversation_id", conv.ID, "agent", conv.Primary().Name)
	return conv, nil
}

// Resume loads a stored conversation.
func (e *Engine) Resume(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	err := e.storage.Load(ctx, key(id), &conv)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidKey) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Fork copies a conversation, transcript and archive included, under a new ID.
// nil participants keeps the original ones.
func (e *Engine) Fork(ctx context.Context, id string, participants []agents.Config) (*Conversation, error) {
	lock := e.turnLock(id)
	lock.Lock()
	source, err := e.Resume(ctx, id)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	now := e.now()
	fork := &Conversation{
		ID:        newID(),
		CreatedAt: now,
		UpdatedAt: now,
		Agents:    source.Agents,
		Messages:  append([]Message{}, source.Messages...),
		State:     append(json.RawMessage(nil), source.State...),
	}
	if participants != nil {
		fork.Agents = participants
	}
	if err := e.save(ctx, fork); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "conversation_forked", "conversation_id", fork.ID, "source_id", id)
	return fork, nil
}

// Delete removes a conversation. Deleting an unknown conversation is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	lock := e.turnLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := e.storage.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	e.mu.Lock()
	delete(e.turns, id)
	e.mu.Unlock()
	return nil
}

// List returns every stored conversation, most recently updated first.
func (e *Engine) List(ctx context.Context) ([]*Conversation, error) {
	records, err := e.storage.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs := make([]*Conversation, 0, len(records))
	for _, raw := range records {
		var conv Conversation
		if err := json.Unmarshal(raw, &conv); err != nil || conv.ID == "" {
			slog.ErrorContext(ctx, "invalid_conversation_record", "error", err)
			continue
		}
		convs = append(convs, &conv)
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

// Respond sends the user's input to the conversation's primary agent and returns its reply.
// The turn is stored only when the model answers; a failed turn leaves the conversation as it was.
func (e *Engine) Respond(ctx context.Context, id, input string) (Message, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Message{}, ErrEmptyInput
	}

	lock := e.turnLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := e.Resume(ctx, id)
	if err != nil {
		return Message{}, err
	}
	primary := conv.Primary()
	userMessage := Message{Role: RoleUser, Source: UserSource, Content: input, Timestamp: e.now()}

	actions := aitooling.NewLogAccumulator()
	opts := []cyberalchemy.ChatOption{
		cyberalchemy.WithSystemMessage(e.instructions(conv)),
		cyberalchemy.WithUserMessage(input),
		cyberalchemy.WithSpeaker(primary.Name),
		cyberalchemy.WithToolActionLogger(actions),
	}
	if primary.IsManager() {
		opts = append(opts, cyberalchemy.WithTools(e.registry.Tools()))
	}

	reply, state, err := e.chat.ChatWithState(ctx, conv.ChatState(), opts...)
	if err != nil {
		slog.ErrorContext(ctx, "conversation_turn_failed", "conversation_id", id, "error", err)
		return Message{}, fmt.Errorf("conversation %s: %w", id, err)
	}

	assistantMessage := Message{Role: RoleAssistant, Source: primary.Name, Content: reply, Timestamp: e.now()}
	conv.Messages = append(conv.Messages, userMessage, assistantMessage)
	conv.State = json.RawMessage(state)
	conv.UpdatedAt = assistantMessage.Timestamp
	if err := e.save(ctx, conv); err != nil {
		return Message{}, err
	}

	actions.SendTo(aitooling.SlogLogger{Context: ctx, Attrs: []interface{}{"conversation_id", id}})
	archive := conv.Archive()
	slog.DebugContext(ctx, "conversation_turn_completed",
		"conversation_id", id,
		"agent", primary.Name,
		"messages", len(conv.Messages),
		"archived_index", archive.ArchivedIndex)
	return assistantMessage, nil
}

// instructions is the primary agent's system prompt, naming the other participants if any.
func (e *Engine) instructions(conv *Conversation) string {
	prompt := conv.Primary().Instructions()
	if len(conv.Agents) < 2 {
		return prompt
	}
	others := make([]string, 0, len(conv.Agents)-1)
	for _, agent := range conv.Agents[1:] {
		others = append(others, agent.Name)
	}
	return prompt + "\n\nOther participants: " + strings.Join(others, ", ") + "."
}

func (e *Engine) save(ctx context.Context, conv *Conversation) error {
	if err := e.storage.Save(ctx, key(conv.ID), conv); err != nil {
		return fmt.Errorf("save conversation %s: %w", conv.ID, err)
	}
	return nil
}
