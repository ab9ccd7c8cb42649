package cyberalchemy

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindowBounds is returned when MinMessages or MaxMessages are out of range.
	ErrInvalidWindowBounds = errors.New("invalid window bounds")
	// ErrMissingSummarizer is returned when an ArchiveContext is built without a Summarizer.
	ErrMissingSummarizer = errors.New("summarizer is required")
	// ErrMissingMessageFactory is returned when an ArchiveContext is built without a message factory.
	ErrMissingMessageFactory = errors.New("system message factory is required")
	// ErrInvalidArchiveState is returned when restoring a cursor/summary pair that cannot be valid.
	ErrInvalidArchiveState = errors.New("invalid archive state")
)

// NotArchived is the cursor value of a conversation with nothing archived yet.
const NotArchived = -1

// WindowBounds configures the live window.
// Once more than MaxMessages countable messages are live, the oldest are summarized
// until MinMessages remain (or at most MaxArchiveSize per pass).
type WindowBounds struct {
	MinMessages int `json:"min_messages" yaml:"min_messages"`
	MaxMessages int `json:"max_messages" yaml:"max_messages"`
}

// DefaultWindowBounds are the bounds used when configuration does not override them.
var DefaultWindowBounds = WindowBounds{MinMessages: 20, MaxMessages: 50}

// Validate reports whether the bounds are usable.
func (b WindowBounds) Validate() error {
	if b.MinMessages <= 0 {
		return fmt.Errorf("%w: min_messages must be positive, got %d", ErrInvalidWindowBounds, b.MinMessages)
	}
	if b.MaxMessages <= b.MinMessages {
		return fmt.Errorf("%w: max_messages (%d) must be greater than min_messages (%d)",
			ErrInvalidWindowBounds, b.MaxMessages, b.MinMessages)
	}
	return nil
}

// MaxArchiveSize is the largest number of messages a single pass archives.
func (b WindowBounds) MaxArchiveSize() int {
	return b.MaxMessages - b.MinMessages
}

// ArchiveState is the persisted part of an ArchiveContext.
type ArchiveState struct {
	ArchivedIndex   int    `json:"archived_index"`
	ArchivedSummary string `json:"archived_summary"`
}

// NewArchiveState returns the state of a conversation with nothing archived.
func NewArchiveState() ArchiveState {
	return ArchiveState{ArchivedIndex: NotArchived}
}

// Validate checks the cursor and summary are consistent.
func (s ArchiveState) Validate() error {
	if s.ArchivedIndex < NotArchived {
		return fmt.Errorf("%w: archived_index %d", ErrInvalidArchiveState, s.ArchivedIndex)
	}
	if s.ArchivedIndex >= 0 && s.ArchivedSummary == "" {
		return fmt.Errorf("%w: archived_index %d has no summary", ErrInvalidArchiveState, s.ArchivedIndex)
	}
	return nil
}
