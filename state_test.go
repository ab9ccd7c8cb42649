package cyberalchemy

import (
	"context"
	"encoding/json"
	"testing"
)

// Test: Leading system messages are split from the rest
func TestSplitLeadingSystemMessages(t *testing.T) {
	tests := []struct {
		name            string
		messages        []Message
		expectedLeading int
		expectedRest    int
	}{
		{name: "empty", messages: nil},
		{name: "no_leading", messages: []Message{userMsg("u"), systemMsg("s")}, expectedRest: 2},
		{name: "leading_and_inline", messages: []Message{systemMsg("1"), systemMsg("2"), userMsg("3"), systemMsg("4")}, expectedLeading: 2, expectedRest: 2},
		{name: "only_system", messages: []Message{systemMsg("1"), systemMsg("2")}, expectedLeading: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leading, rest := splitLeadingSystemMessages(tt.messages)
			if len(leading) != tt.expectedLeading {
				t.Errorf("Expected %d leading, got %d", tt.expectedLeading, len(leading))
			}
			if len(rest) != tt.expectedRest {
				t.Errorf("Expected %d rest, got %d", tt.expectedRest, len(rest))
			}
		})
	}
}

// Test: Encoding then decoding keeps messages and archive state
func TestState_RoundTrip(t *testing.T) {
	backend := &mockBackend{}
	messages := []Message{userMsg("a"), assistantMsg("Alice", "b"), toolCallMsg("c1"), toolResultMsg("c1", "r")}
	archive := ArchiveState{ArchivedIndex: 1, ArchivedSummary: "summary"}

	state, err := encodeState(backend.ProviderName(), messages, archive)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	decoded := decodeState(context.Background(), backend, SilentLogger{}, state)

	if len(decoded.messages) != len(messages) {
		t.Fatalf("Expected %d messages, got %d", len(messages), len(decoded.messages))
	}
	for i, msg := range messages {
		if KindOf(decoded.messages[i]) != KindOf(msg) || decoded.messages[i].Content() != msg.Content() {
			t.Errorf("Message %d differs after round trip", i)
		}
	}
	if decoded.archive != archive {
		t.Errorf("Expected archive %+v, got %+v", archive, decoded.archive)
	}
	if MessageCount(state) != 4 || ArchiveStateOf(state) != archive {
		t.Error("Expected the inspection helpers to agree with decodeState")
	}
}

// Test: Version 1 state loads with nothing archived
func TestState_DecodeVersion1(t *testing.T) {
	backend := &mockBackend{}
	raw, _ := userMsg("old").MarshalJSON()
	v1, _ := json.Marshal(map[string]interface{}{
		"version":          1,
		"provider":         "mock",
		"processed_length": 1,
		"messages":         []json.RawMessage{raw},
	})

	decoded := decodeState(context.Background(), backend, SilentLogger{}, v1)

	if len(decoded.messages) != 1 || decoded.messages[0].Content() != "old" {
		t.Errorf("Expected the v1 message, got %d messages", len(decoded.messages))
	}
	if decoded.archive != NewArchiveState() {
		t.Errorf("Expected nothing archived, got %+v", decoded.archive)
	}
}

// Test: Bad state degrades to a fresh conversation and is logged
func TestState_DecodeDegradesGracefully(t *testing.T) {
	backend := &mockBackend{}
	valid, _ := encodeState("mock", []Message{userMsg("a")}, NewArchiveState())
	otherProvider, _ := encodeState("azure", []Message{userMsg("a")}, NewArchiveState())
	future, _ := json.Marshal(map[string]interface{}{"version": 9, "provider": "mock"})
	badMessage, _ := json.Marshal(map[string]interface{}{
		"version": 2, "provider": "mock", "messages": []string{"not an object"},
	})

	tests := []struct {
		name          string
		state         ConversationState
		expectedEvent string
		expectedCount int
	}{
		{name: "nil", state: nil},
		{name: "valid", state: valid, expectedCount: 1},
		{name: "corrupt_json", state: ConversationState("{"), expectedEvent: "invalid_conversation_state"},
		{name: "provider_mismatch", state: otherProvider, expectedEvent: "provider_mismatch"},
		{name: "unsupported_version", state: future, expectedEvent: "unsupported_state_version"},
		{name: "bad_message", state: badMessage, expectedEvent: "message_unmarshal_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			decoded := decodeState(context.Background(), backend, logger, tt.state)

			if len(decoded.messages) != tt.expectedCount {
				t.Errorf("Expected %d messages, got %d", tt.expectedCount, len(decoded.messages))
			}
			if decoded.archive.ArchivedIndex != NotArchived && tt.expectedEvent != "" {
				t.Errorf("Expected a fresh archive, got %+v", decoded.archive)
			}
			if tt.expectedEvent != "" && !logger.has(tt.expectedEvent) {
				t.Errorf("Expected %s to be logged, got %v", tt.expectedEvent, logger.events)
			}
			if tt.expectedEvent == "" && len(logger.events) != 0 {
				t.Errorf("Expected no log events, got %v", logger.events)
			}
		})
	}
}

// Test: An archive cursor beyond the log is discarded
func TestState_DecodeRejectsCursorBeyondLog(t *testing.T) {
	backend := &mockBackend{}
	state, _ := encodeState("mock", []Message{userMsg("a")}, ArchiveState{ArchivedIndex: 5, ArchivedSummary: "s"})
	logger := &recordingLogger{}

	decoded := decodeState(context.Background(), backend, logger, state)

	if len(decoded.messages) != 1 {
		t.Errorf("Expected the message to survive, got %d", len(decoded.messages))
	}
	if decoded.archive != NewArchiveState() {
		t.Errorf("Expected the archive to be reset, got %+v", decoded.archive)
	}
	if !logger.has("invalid_archive_state") {
		t.Errorf("Expected invalid_archive_state to be logged, got %v", logger.events)
	}
}
