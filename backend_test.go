package cyberalchemy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m0rjc/cyberalchemy/aitooling"
)

// mockMessage is a provider-neutral Message for tests.
type mockMessage struct {
	MsgRole       Role       `json:"role"`
	MsgSource     string     `json:"source,omitempty"`
	MsgContent    string     `json:"content,omitempty"`
	MsgToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	MsgToolCallID string     `json:"tool_call_id,omitempty"`
}

func (m *mockMessage) Role() Role            { return m.MsgRole }
func (m *mockMessage) Source() string        { return m.MsgSource }
func (m *mockMessage) Content() string       { return m.MsgContent }
func (m *mockMessage) ToolCalls() []ToolCall { return m.MsgToolCalls }
func (m *mockMessage) ToolCallID() string    { return m.MsgToolCallID }

func (m *mockMessage) MarshalJSON() ([]byte, error) {
	type plain mockMessage
	return json.Marshal((*plain)(m))
}

func userMsg(content string) Message {
	return &mockMessage{MsgRole: RoleUser, MsgContent: content}
}

func assistantMsg(source, content string) Message {
	return &mockMessage{MsgRole: RoleAssistant, MsgSource: source, MsgContent: content}
}

func systemMsg(content string) Message {
	return &mockMessage{MsgRole: RoleSystem, MsgContent: content}
}

func toolCallMsg(ids ...string) Message {
	calls := make([]ToolCall, len(ids))
	for i, id := range ids {
		calls[i] = ToolCall{ID: id, Name: "lookup", Arguments: "{}"}
	}
	return &mockMessage{MsgRole: RoleAssistant, MsgToolCalls: calls}
}

func mixedMsg(content string, id string) Message {
	return &mockMessage{MsgRole: RoleAssistant, MsgContent: content,
		MsgToolCalls: []ToolCall{{ID: id, Name: "lookup", Arguments: "{}"}}}
}

func toolResultMsg(id, content string) Message {
	return &mockMessage{MsgRole: RoleTool, MsgToolCallID: id, MsgContent: content}
}

// mockBackend implements Backend with mockMessage.
type mockBackend struct {
	chatFunc func(ctx context.Context, messages []Message, tools aitooling.ToolSet) (*ChatResponse, error)
	provider string
	calls    [][]Message
}

func (m *mockBackend) ChatCompletion(ctx context.Context, messages []Message, tools aitooling.ToolSet) (*ChatResponse, error) {
	m.calls = append(m.calls, append([]Message(nil), messages...))
	if m.chatFunc != nil {
		return m.chatFunc(ctx, messages, tools)
	}
	return stopWith("ok"), nil
}

func (m *mockBackend) ProviderName() string {
	if m.provider == "" {
		return "mock"
	}
	return m.provider
}

func (m *mockBackend) NewSystemMessage(content string) Message { return systemMsg(content) }
func (m *mockBackend) NewUserMessage(content string) Message   { return userMsg(content) }
func (m *mockBackend) NewToolMessage(toolCallID, content string) Message {
	return toolResultMsg(toolCallID, content)
}

func (m *mockBackend) WithSource(msg Message, source string) Message {
	copied := *msg.(*mockMessage)
	copied.MsgSource = source
	return &copied
}

func (m *mockBackend) UnmarshalMessage(data []byte) (Message, error) {
	var msg mockMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func stopWith(content string) *ChatResponse {
	return &ChatResponse{
		Message:      &mockMessage{MsgRole: RoleAssistant, MsgContent: content},
		FinishReason: FinishReasonStop,
	}
}

// recordingSummarizer records its inputs and answers from a script.
type recordingSummarizer struct {
	mu       sync.Mutex
	calls    []summarizeCall
	respond  func(call int, previous, transcript string) (string, error)
	blocking chan struct{} // if set, Summarize waits for it or ctx
}

type summarizeCall struct {
	previous   string
	transcript string
}

func (r *recordingSummarizer) Summarize(ctx context.Context, previous, transcript string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, summarizeCall{previous: previous, transcript: transcript})
	n := len(r.calls)
	r.mu.Unlock()

	if r.blocking != nil {
		select {
		case <-r.blocking:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.respond != nil {
		return r.respond(n, previous, transcript)
	}
	return "summary", nil
}

func (r *recordingSummarizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// recordingLogger captures system log events.
type recordingLogger struct {
	events []string
	errors []error
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.events = append(l.events, msg)
}

func (l *recordingLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.events = append(l.events, msg)
}

func (l *recordingLogger) Error(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
	l.events = append(l.events, msg)
	l.errors = append(l.errors, err)
}

func (l *recordingLogger) has(event string) bool {
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

// recordingObserver captures archive observer calls.
type recordingObserver struct {
	archived []int
	failures []error
	measured []int
}

func (o *recordingObserver) ArchiveSucceeded(archived int, _ time.Duration) {
	o.archived = append(o.archived, archived)
}
func (o *recordingObserver) ArchiveFailed(err error, _ time.Duration) { o.failures = append(o.failures, err) }
func (o *recordingObserver) WindowMeasured(live int)                  { o.measured = append(o.measured, live) }

// Test: Speaker falls back to the role when no source is set
func TestSpeaker_FallsBackToRole(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{name: "user_without_source", msg: userMsg("hi"), expected: "user"},
		{name: "assistant_with_source", msg: assistantMsg("Alice", "hi"), expected: "Alice"},
		{name: "assistant_without_source", msg: assistantMsg("", "hi"), expected: "assistant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Speaker(tt.msg); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

// Test: mockBackend satisfies the interfaces the library depends on
func TestBackend_InterfaceContract(t *testing.T) {
	var _ Backend = &mockBackend{}
	var _ SourceStamper = &mockBackend{}
	var _ Summarizer = &recordingSummarizer{}
	var _ SystemLogger = &recordingLogger{}
	var _ ArchiveObserver = &recordingObserver{}
	var _ SystemLogger = NewSlogSystemLogger("component", "test")
	var _ SystemLogger = NewSilentLogger()
}

// Test: Message JSON survives the backend round trip
func TestMessage_JSONRoundTrip(t *testing.T) {
	backend := &mockBackend{}
	original := mixedMsg("checking", "call_1")

	raw, err := original.MarshalJSON()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	restored, err := backend.UnmarshalMessage(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if KindOf(restored) != KindAssistantMixed {
		t.Errorf("Expected assistant_mixed, got %s", KindOf(restored))
	}
	if restored.ToolCalls()[0].ID != "call_1" {
		t.Errorf("Expected call_1, got %s", restored.ToolCalls()[0].ID)
	}
}

// Test: Unknown JSON does not decode into a message
func TestMessage_UnmarshalInvalid(t *testing.T) {
	_, err := (&mockBackend{}).UnmarshalMessage([]byte("not json"))
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("Expected JSON syntax error, got %v", err)
	}
}
