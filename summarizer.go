package cyberalchemy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m0rjc/cyberalchemy/aitooling"
)

var (
	// ErrEmptySummary is returned when the summarizer produced blank text.
	ErrEmptySummary = errors.New("summarizer returned an empty summary")
	// ErrSummaryIncomplete is returned when the model stopped for a reason other than completion.
	ErrSummaryIncomplete = errors.New("summary incomplete")
	// ErrInvalidArchivePrompt is returned for a prompt without exactly two string slots.
	ErrInvalidArchivePrompt = errors.New("archive prompt must contain exactly two %s verbs")
)

// DefaultSummaryTimeout bounds a single summarization call.
const DefaultSummaryTimeout = 60 * time.Second

// ArchivePrompt is the instruction sent to the summarization model.
// The first %s is the previous summary, the second the transcript being archived.
const ArchivePrompt = `The current conversation has grown too long, and the following is a segment of the dialogue that needs to be summarized.

Please summarize this content according to the following criteria:

1.  **Core Points & Current State**: Extract the **main topics discussed, key information, any conclusions reached, decisions made, and importantly, the current state or intermediate results of any ongoing tasks** within this dialogue segment.
2.  **Unresolved Matters/Future Directions**: Identify any **open questions, pending tasks, points of disagreement, or areas that could be explored further** that are still pending.
3.  **Concise Format**: The summary should be **brief and to the point**, maintaining information density while avoiding redundancy.

After the summary, please provide 1-2 **follow-up questions or discussion points** so we can continue the conversation based on the current state.


---
%s
---
%s
---
`

// ValidateArchivePrompt checks that prompt formats the previous summary and the transcript
// without fmt error text.
func ValidateArchivePrompt(prompt string) error {
	const previous, transcript = "\x00previous\x00", "\x00transcript\x00"
	formatted := fmt.Sprintf(prompt, previous, transcript)
	if strings.Contains(formatted, "%!") ||
		!strings.Contains(formatted, previous) || !strings.Contains(formatted, transcript) {
		return ErrInvalidArchivePrompt
	}
	return nil
}

// Summarizer condenses a transcript, folding in the previous summary.
type Summarizer interface {
	Summarize(ctx context.Context, previousSummary, transcript string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, previousSummary, transcript string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, previousSummary, transcript string) (string, error) {
	return f(ctx, previousSummary, transcript)
}

// BackendSummarizer summarizes with a single, tool-free completion against a Backend.
type BackendSummarizer struct {
	Backend Backend
	Prompt  string        // Format string with exactly two %s slots (default ArchivePrompt), see ValidateArchivePrompt
	Timeout time.Duration // Per-call timeout (0 = DefaultSummaryTimeout)
}

// NewBackendSummarizer returns a BackendSummarizer with the default prompt and timeout.
func NewBackendSummarizer(backend Backend) *BackendSummarizer {
	return &BackendSummarizer{Backend: backend}
}

func (s *BackendSummarizer) Summarize(ctx context.Context, previousSummary, transcript string) (string, error) {
	prompt := s.Prompt
	if prompt == "" {
		prompt = ArchivePrompt
	} else if err := ValidateArchivePrompt(prompt); err != nil {
		return "", err
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSummaryTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []Message{s.Backend.NewUserMessage(fmt.Sprintf(prompt, previousSummary, transcript))}
	response, err := s.Backend.ChatCompletion(ctx, messages, aitooling.ToolSet{})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if response.FinishReason != FinishReasonStop {
		return "", fmt.Errorf("%w: finish reason %q", ErrSummaryIncomplete, response.FinishReason)
	}
	summary := strings.TrimSpace(response.Message.Content())
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}
