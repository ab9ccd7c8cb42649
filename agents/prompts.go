package agents

import (
	"fmt"
	"strings"
)

// ManagerPrompt is the system prompt of the agent manager.
const ManagerPrompt = `You manage the agents available on this platform.
You can list agents, look them up by name or ID, and create new agents.
When asked to create an agent, choose a short unique name, a one-line description
and a system prompt describing the agent's role.
Report the ID of every agent you create.`

const (
	identityInstruction    = "Your name is %s. Messages from other participants are labelled with their names."
	nextSpeakerInstruction = "If another participant should answer next, end your reply by naming them."
	terminateInstruction   = "When the task is complete and nothing remains to be said, reply with TERMINATE."
)

// Instructions is the full system prompt sent for the agent:
// its own prompt followed by identity and turn-taking instructions.
func (c Config) Instructions() string {
	prompt := c.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return strings.Join([]string{
		prompt,
		fmt.Sprintf(identityInstruction, c.Name),
		nextSpeakerInstruction,
		terminateInstruction,
	}, "\n\n")
}
