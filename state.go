package cyberalchemy

import (
	"context"
	"encoding/json"
	"fmt"
)

// ConversationState is an opaque blob representing conversation history.
// Clients should treat this as a black box - store it, retrieve it, but don't inspect it.
type ConversationState []byte

const currentStateVersion = 2

// conversationStateInternal is the internal representation of conversation state.
// This is not exposed to clients - they only see the opaque []byte.
//
// Version 1 blobs carry no archive; they load with nothing archived.
type conversationStateInternal struct {
	Version  int               `json:"version"`           // State format version (current: 2)
	Provider string            `json:"provider"`          // Backend provider name (e.g., "openai")
	Messages []json.RawMessage `json:"messages"`          // Full conversation log (opaque provider-specific messages)
	Archive  *ArchiveState     `json:"archive,omitempty"` // Archive cursor and summary
}

// decodedState is the in-memory form of a ConversationState.
type decodedState struct {
	messages []Message
	archive  ArchiveState
}

func freshState() decodedState {
	return decodedState{archive: NewArchiveState()}
}

// splitLeadingSystemMessages separates the caller's leading system messages from the rest.
func splitLeadingSystemMessages(messages []Message) (leading, rest []Message) {
	for i, msg := range messages {
		if msg.Role() != RoleSystem {
			return messages[:i], messages[i:]
		}
	}
	return messages, nil
}

// encodeState serializes the log and archive state to an opaque blob.
func encodeState(provider string, messages []Message, archive ArchiveState) (ConversationState, error) {
	rawMessages := make([]json.RawMessage, len(messages))
	for i, msg := range messages {
		data, err := msg.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("marshal message %d: %w", i, err)
		}
		rawMessages[i] = data
	}

	internal := conversationStateInternal{
		Version:  currentStateVersion,
		Provider: provider,
		Messages: rawMessages,
		Archive:  &archive,
	}

	data, err := json.Marshal(internal)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation state: %w", err)
	}
	return ConversationState(data), nil
}

// decodeState deserializes conversation state from an opaque blob.
// Returns a fresh state if the blob is nil, corrupted, or incompatible with the backend.
func decodeState(ctx context.Context, backend Backend, logger SystemLogger, state ConversationState) decodedState {
	if len(state) == 0 {
		return freshState()
	}

	var internal conversationStateInternal
	if err := json.Unmarshal(state, &internal); err != nil {
		logger.Error(ctx, "invalid_conversation_state", err)
		return freshState()
	}

	if internal.Version != 1 && internal.Version != currentStateVersion {
		logger.Error(ctx, "unsupported_state_version", nil, "version", internal.Version)
		return freshState()
	}

	if internal.Provider != backend.ProviderName() {
		logger.Error(ctx, "provider_mismatch", nil,
			"state_provider", internal.Provider,
			"current_provider", backend.ProviderName())
		return freshState()
	}

	messages := make([]Message, len(internal.Messages))
	for i, raw := range internal.Messages {
		msg, err := backend.UnmarshalMessage(raw)
		if err != nil {
			logger.Error(ctx, "message_unmarshal_failed", err, "index", i)
			return freshState()
		}
		messages[i] = msg
	}

	archive := NewArchiveState()
	if internal.Archive != nil {
		archive = *internal.Archive
	}
	if err := archive.Validate(); err != nil || archive.ArchivedIndex >= len(messages) {
		logger.Error(ctx, "invalid_archive_state", err, "archived_index", archive.ArchivedIndex)
		archive = NewArchiveState()
	}

	return decodedState{messages: messages, archive: archive}
}

// ArchiveStateOf reads the archive part of a conversation state without decoding messages.
// Returns the not-archived state for empty or unreadable blobs.
func ArchiveStateOf(state ConversationState) ArchiveState {
	var internal conversationStateInternal
	if len(state) == 0 || json.Unmarshal(state, &internal) != nil || internal.Archive == nil {
		return NewArchiveState()
	}
	return *internal.Archive
}

// MessageCount returns the number of logged messages in a conversation state.
func MessageCount(state ConversationState) int {
	var internal conversationStateInternal
	if len(state) == 0 || json.Unmarshal(state, &internal) != nil {
		return 0
	}
	return len(internal.Messages)
}
