// Package main demonstrates rolling context window archiving.
//
// The chat keeps at most six live messages. Once a turn pushes the window past that,
// the oldest messages are folded into a running summary; the full log stays in state.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/example/shared"
)

func main() {
	shared.ReadDotEnv()
	client := shared.CreateOpenAIClient()
	ctx := context.Background()

	chat := &cyberalchemy.Chat{
		Backend:      client,
		SystemLogger: cyberalchemy.NewSlogSystemLogger(),
		Archive: &cyberalchemy.ArchiveConfig{
			Bounds: cyberalchemy.WindowBounds{MinMessages: 2, MaxMessages: 6},
		},
	}

	systemPrompt := "You are a helpful assistant discussing world geography. Keep responses to 1-2 sentences."
	turns := []string{
		"What is the capital of France?",
		"What about Germany?",
		"And what's the capital of Italy?",
		"Which of these cities is the largest?",
		"Tell me about the smallest one.",
		"Which of the cities we discussed did we talk about first?",
	}

	var state cyberalchemy.ConversationState
	for i, userMsg := range turns {
		fmt.Printf("\n--- Turn %d ---\n", i+1)
		fmt.Printf("USER: %s\n", userMsg)

		response, newState, err := chat.ChatWithState(ctx, state,
			cyberalchemy.WithSystemMessage(systemPrompt),
			cyberalchemy.WithUserMessage(userMsg),
			cyberalchemy.WithSpeaker("Geographer"),
		)
		if err != nil {
			log.Fatalf("Turn %d error: %v", i+1, err)
		}
		state = newState
		fmt.Printf("GEOGRAPHER: %s\n", response)

		archive := cyberalchemy.ArchiveStateOf(state)
		fmt.Printf("[State: %d messages stored, %d archived]\n", cyberalchemy.MessageCount(state), archive.ArchivedIndex+1)
		if archive.ArchivedSummary != "" {
			fmt.Printf("[Summary: %s]\n", firstLine(archive.ArchivedSummary))
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
