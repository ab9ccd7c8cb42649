package cyberalchemy

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ArchiveSummaryHeader prefixes the summary when it is sent to the model.
const ArchiveSummaryHeader = "Summary of the earlier, archived part of this conversation:\n"

// ArchiveContext decides which messages of a growing conversation log are sent to the model.
//
// Countable messages (user text and assistant text) after the archive cursor form the live
// window. When the window grows beyond MaxMessages the oldest messages are summarized and
// the cursor moves past them. Nothing is ever removed from the log itself.
//
// An ArchiveContext belongs to one conversation and is not safe for concurrent use.
type ArchiveContext struct {
	bounds     WindowBounds
	summarizer Summarizer
	factory    SystemMessageFactory
	logger     SystemLogger
	observer   ArchiveObserver
	state      ArchiveState
}

// ArchiveOption configures an ArchiveContext.
type ArchiveOption func(*ArchiveContext)

// WithArchiveLogger sets the logger used for archive events.
func WithArchiveLogger(logger SystemLogger) ArchiveOption {
	return func(a *ArchiveContext) {
		a.logger = orSilent(logger)
	}
}

// WithArchiveObserver sets an observer, e.g. metrics.ArchiveMetrics.
func WithArchiveObserver(observer ArchiveObserver) ArchiveOption {
	return func(a *ArchiveContext) {
		if observer != nil {
			a.observer = observer
		}
	}
}

// WithArchiveState starts the context from previously saved state.
func WithArchiveState(state ArchiveState) ArchiveOption {
	return func(a *ArchiveContext) {
		a.state = state
	}
}

// NewArchiveContext validates its configuration and returns a context with nothing archived
// (unless WithArchiveState says otherwise).
func NewArchiveContext(bounds WindowBounds, summarizer Summarizer, factory SystemMessageFactory, opts ...ArchiveOption) (*ArchiveContext, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if summarizer == nil {
		return nil, ErrMissingSummarizer
	}
	if factory == nil {
		return nil, ErrMissingMessageFactory
	}

	a := &ArchiveContext{
		bounds:     bounds,
		summarizer: summarizer,
		factory:    factory,
		logger:     SilentLogger{},
		observer:   nopObserver{},
		state:      NewArchiveState(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.state.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Bounds returns the configured window bounds.
func (a *ArchiveContext) Bounds() WindowBounds {
	return a.bounds
}

// State returns the cursor and summary for persistence.
func (a *ArchiveContext) State() ArchiveState {
	return a.state
}

// Restore replaces the cursor and summary with saved state.
func (a *ArchiveContext) Restore(state ArchiveState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	a.state = state
	return nil
}

// indexedMessage is a live window entry with its absolute position in the log.
type indexedMessage struct {
	index   int
	message Message
}

// Messages returns the messages to send to the model for the given log:
// the summary as a system message (if anything is archived), the live window, then the
// trailing run of tool calls and tool results. Every tool call in the result is followed by
// its tool result; mixed messages outside the tail are sent as text only.
//
// Messages archives as many times as needed to bring the window back to MaxMessages.
// A failed summarization leaves the state untouched and is retried on the next call; the
// window is then returned over-sized. The only error returned is the context's, when it
// ended a pass.
func (a *ArchiveContext) Messages(ctx context.Context, log []Message) ([]Message, error) {
	window := a.liveWindow(log)
	for len(window) > a.bounds.MaxMessages {
		if err := a.archive(ctx, window); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			break
		}
		window = a.liveWindow(log)
	}
	a.observer.WindowMeasured(len(window))

	tail := pendingTail(log)
	pinned := make(map[int]bool, len(tail))
	for _, m := range tail {
		pinned[m.index] = true
	}

	out := make([]Message, 0, len(window)+len(tail)+1)
	if a.state.ArchivedSummary != "" {
		out = append(out, a.factory.NewSystemMessage(ArchiveSummaryHeader+a.state.ArchivedSummary))
	}
	seen := make(map[int]bool, len(window))
	for _, m := range window {
		seen[m.index] = true
		msg := m.message
		// Results of a mixed message outside the tail are not sent, so neither are its calls.
		if KindOf(msg) == KindAssistantMixed && !pinned[m.index] {
			msg = textOnly{msg}
		}
		out = append(out, msg)
	}
	for _, m := range tail {
		if !seen[m.index] {
			out = append(out, m.message)
		}
	}
	return out, nil
}

// liveWindow returns the countable messages after the cursor, in log order.
func (a *ArchiveContext) liveWindow(log []Message) []indexedMessage {
	var window []indexedMessage
	for i := a.state.ArchivedIndex + 1; i < len(log); i++ {
		if KindOf(log[i]).CountsTowardWindow() {
			window = append(window, indexedMessage{index: i, message: log[i]})
		}
	}
	return window
}

// pendingTail returns the contiguous run of tool calls and tool results at the end of the log.
// A mixed assistant message whose results open that run is included with it.
func pendingTail(log []Message) []indexedMessage {
	start := len(log)
	for start > 0 && KindOf(log[start-1]).PinnedToTail() {
		start--
	}
	if start > 0 && start < len(log) && KindOf(log[start]) == KindToolResult &&
		KindOf(log[start-1]) == KindAssistantMixed {
		start--
	}
	tail := make([]indexedMessage, 0, len(log)-start)
	for i := start; i < len(log); i++ {
		tail = append(tail, indexedMessage{index: i, message: log[i]})
	}
	return tail
}

// archive runs one compaction pass over the oldest window messages.
// The cursor and summary change together, or not at all.
func (a *ArchiveContext) archive(ctx context.Context, window []indexedMessage) error {
	size := min(len(window)-a.bounds.MinMessages, a.bounds.MaxArchiveSize())
	batch := window[:size]
	candidate := batch[len(batch)-1].index

	started := time.Now()
	a.logger.Debug(ctx, "archive_started",
		"window_size", len(window),
		"archive_size", size,
		"archived_index", a.state.ArchivedIndex,
		"candidate_index", candidate)

	summary, err := a.summarizer.Summarize(ctx, a.state.ArchivedSummary, transcript(batch))
	if err == nil && strings.TrimSpace(summary) == "" {
		err = ErrEmptySummary
	}
	elapsed := time.Since(started)
	if err != nil {
		a.logger.Error(ctx, "archive_summarize_failed", err,
			"archive_size", size,
			"archived_index", a.state.ArchivedIndex,
			"elapsed", elapsed)
		a.observer.ArchiveFailed(err, elapsed)
		return fmt.Errorf("archive %d messages: %w", size, err)
	}

	a.state = ArchiveState{ArchivedIndex: candidate, ArchivedSummary: summary}
	a.logger.Info(ctx, "archive_compacted",
		"archived_messages", size,
		"archived_index", candidate,
		"elapsed", elapsed)
	a.observer.ArchiveSucceeded(size, elapsed)
	return nil
}

// transcript renders messages as "<source>: <content>" lines, oldest first.
func transcript(batch []indexedMessage) string {
	lines := make([]string, len(batch))
	for i, m := range batch {
		lines[i] = Speaker(m.message) + ": " + m.message.Content()
	}
	return strings.Join(lines, "\n")
}
