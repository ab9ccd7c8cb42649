// Package conversation stores conversations with agents and runs their turns.
package conversation

import (
	"encoding/json"
	"time"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/agents"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	// UserSource is the source of messages typed by the user.
	UserSource = "user"
)

// Message is one entry of the display transcript.
type Message struct {
	Role      string    `json:"role"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a stored conversation. Messages is the readable transcript;
// State is the model-facing log, including tool traffic and the archive.
type Conversation struct {
	ID        string          `json:"conversation_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Agents    []agents.Config `json:"agents"`
	Messages  []Message       `json:"messages"`
	State     json.RawMessage `json:"state,omitempty"`
}

// Primary is the agent that answers. A conversation without participants talks to the manager.
func (c *Conversation) Primary() agents.Config {
	if len(c.Agents) == 0 {
		return agents.Manager()
	}
	return c.Agents[0]
}

// ChatState returns the stored state in the form the chat loop takes.
func (c *Conversation) ChatState() cyberalchemy.ConversationState {
	if len(c.State) == 0 {
		return nil
	}
	return cyberalchemy.ConversationState(c.State)
}

// Archive reports how much of the conversation has been archived.
func (c *Conversation) Archive() cyberalchemy.ArchiveState {
	return cyberalchemy.ArchiveStateOf(c.ChatState())
}

// Summary is the listing view of a conversation.
type Summary struct {
	ID           string    `json:"conversation_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Agents       []string  `json:"agents"`
	MessageCount int       `json:"message_count"`
}

func (c *Conversation) Summary() Summary {
	names := make([]string, len(c.Agents))
	for i, agent := range c.Agents {
		names[i] = agent.Name
	}
	return Summary{
		ID:           c.ID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Agents:       names,
		MessageCount: len(c.Messages),
	}
}
