package aitooling

import (
	"context"
	"log/slog"
)

// ToolAction A log of an action executed by a tool.
type ToolAction interface {
	// Description returns a human-readable description of the action, as could be presented in a bulleted list.
	Description() string
}

// TextAction is a ToolAction with a fixed description.
type TextAction string

func (a TextAction) Description() string { return string(a) }

// Logger logs tool actions.
type Logger interface {
	// Log an action made by the tool. This is best effort and should not fail.
	Log(action ToolAction)
	// LogAll actions made by the tool. This is best effort and should not fail.
	LogAll(actions []ToolAction)
}

// SlogLogger writes tool actions to log/slog at INFO level.
type SlogLogger struct {
	Context context.Context
	Attrs   []interface{} // Added to every record, e.g. "conversation_id", id
}

func (s SlogLogger) Log(action ToolAction) {
	ctx := s.Context
	if ctx == nil {
		ctx = context.Background()
	}
	args := append([]interface{}{"action", action.Description()}, s.Attrs...)
	slog.InfoContext(ctx, "tool_action", args...)
}

func (s SlogLogger) LogAll(actions []ToolAction) {
	for _, action := range actions {
		s.Log(action)
	}
}

// LogAccumulator holds actions until the surrounding operation commits.
type LogAccumulator struct {
	entries []ToolAction
}

// NewLogAccumulator creates a new log accumulator.
func NewLogAccumulator() *LogAccumulator {
	return &LogAccumulator{
		entries: make([]ToolAction, 0),
	}
}

func (a *LogAccumulator) Log(entry ToolAction) {
	a.entries = append(a.entries, entry)
}

func (a *LogAccumulator) LogAll(entries []ToolAction) {
	a.entries = append(a.entries, entries...)
}

// Len returns the number of accumulated actions.
func (a *LogAccumulator) Len() int {
	return len(a.entries)
}

// SendTo writes all accumulated entries to the target logger.
// Call it once the work the actions describe has been committed.
func (a *LogAccumulator) SendTo(target Logger) {
	if len(a.entries) > 0 {
		target.LogAll(a.entries)
	}
}

// Clear discards the accumulated entries.
func (a *LogAccumulator) Clear() {
	a.entries = a.entries[:0]
}
