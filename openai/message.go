package openai

import (
	"encoding/json"
	"fmt"

	"github.com/m0rjc/cyberalchemy"
)

// message wraps the OpenAI-specific Message type.
// rawJSON keeps every field, including ones this package does not know, for round-tripping.
type message struct {
	rawJSON json.RawMessage
	parsed  Message
}

var _ cyberalchemy.Message = (*message)(nil)

func (m *message) Role() cyberalchemy.Role {
	return cyberalchemy.Role(m.parsed.Role)
}

func (m *message) Source() string {
	return m.parsed.Name
}

func (m *message) Content() string {
	return m.parsed.Content
}

func (m *message) ToolCalls() []cyberalchemy.ToolCall {
	return convertToolCallsFromOpenAI(m.parsed.ToolCalls)
}

func (m *message) ToolCallID() string {
	return m.parsed.ToolCallID
}

// MarshalJSON returns the original JSON bytes.
func (m *message) MarshalJSON() ([]byte, error) {
	return m.rawJSON, nil
}

// newMessage creates a message from a parsed struct (for factory methods).
func newMessage(parsed Message) (cyberalchemy.Message, error) {
	rawJSON, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return &message{
		rawJSON: rawJSON,
		parsed:  parsed,
	}, nil
}

// unmarshalMessage creates a message from raw JSON bytes (for state deserialization).
func unmarshalMessage(data []byte) (cyberalchemy.Message, error) {
	var parsed Message
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal OpenAI message: %w", err)
	}
	return &message{
		rawJSON: append(json.RawMessage(nil), data...),
		parsed:  parsed,
	}, nil
}

// toOpenAI returns the wire form of any Message.
func toOpenAI(msg cyberalchemy.Message) Message {
	if m, ok := msg.(*message); ok {
		return m.parsed
	}
	return Message{
		Role:       string(msg.Role()),
		Content:    msg.Content(),
		Name:       sanitizeName(msg.Source()),
		ToolCalls:  convertToolCallsToOpenAI(msg.ToolCalls()),
		ToolCallID: msg.ToolCallID(),
	}
}

// convertToolCallsToOpenAI converts cyberalchemy.ToolCall to openai.ToolCall.
func convertToolCallsToOpenAI(toolCalls []cyberalchemy.ToolCall) []ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}
	result := make([]ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		result[i] = ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		}
	}
	return result
}

// convertToolCallsFromOpenAI converts openai.ToolCall to cyberalchemy.ToolCall.
func convertToolCallsFromOpenAI(toolCalls []ToolCall) []cyberalchemy.ToolCall {
	if len(toolCalls) == 0 {
		return nil
	}
	result := make([]cyberalchemy.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		result[i] = cyberalchemy.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return result
}
