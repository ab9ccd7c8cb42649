package cyberalchemy

import "encoding/json"

// MessageKind classifies a log message by role and content shape.
// The context window counts and pins messages by kind, never by inspecting
// provider types.
type MessageKind int

const (
	KindUnknown            MessageKind = iota // Unrecognised shape; never part of the window
	KindSystem                                // Inline system message
	KindUserText                              // User text
	KindAssistantText                         // Assistant text without tool calls
	KindAssistantToolCalls                    // Assistant message that is only a batch of tool calls
	KindAssistantMixed                        // Assistant text together with tool calls
	KindToolResult                            // Result of a tool call
)

var messageKindNames = map[MessageKind]string{
	KindUnknown:            "unknown",
	KindSystem:             "system",
	KindUserText:           "user_text",
	KindAssistantText:      "assistant_text",
	KindAssistantToolCalls: "assistant_tool_calls",
	KindAssistantMixed:     "assistant_mixed",
	KindToolResult:         "tool_result",
}

func (k MessageKind) String() string {
	if name, ok := messageKindNames[k]; ok {
		return name
	}
	return messageKindNames[KindUnknown]
}

// KindOf returns the kind of msg. A nil message is KindUnknown.
func KindOf(msg Message) MessageKind {
	if msg == nil {
		return KindUnknown
	}
	switch msg.Role() {
	case RoleSystem:
		return KindSystem
	case RoleUser:
		return KindUserText
	case RoleAssistant:
		if len(msg.ToolCalls()) == 0 {
			return KindAssistantText
		}
		if msg.Content() == "" {
			return KindAssistantToolCalls
		}
		return KindAssistantMixed
	case RoleTool:
		return KindToolResult
	default:
		return KindUnknown
	}
}

// CountsTowardWindow reports whether messages of this kind occupy the live window.
// Mixed assistant messages carry resolvable text, so they count. Outside the pinned
// tail they are sent without their tool calls.
func (k MessageKind) CountsTowardWindow() bool {
	switch k {
	case KindUserText, KindAssistantText, KindAssistantMixed:
		return true
	default:
		return false
	}
}

// PinnedToTail reports whether a trailing run of messages of this kind is always
// sent to the model, so pending tool calls stay next to their results.
func (k MessageKind) PinnedToTail() bool {
	return k == KindToolResult || k == KindAssistantToolCalls
}

// textOnly is the view of an assistant message without its tool calls.
// It is only sent to the model, never stored.
type textOnly struct {
	Message
}

func (textOnly) ToolCalls() []ToolCall { return nil }

func (m textOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Role    Role   `json:"role"`
		Name    string `json:"name,omitempty"`
		Content string `json:"content"`
	}{m.Role(), m.Source(), m.Content()})
}
