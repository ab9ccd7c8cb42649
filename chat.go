package cyberalchemy

import (
	"context"
	"fmt"

	"github.com/m0rjc/cyberalchemy/aitooling"
)

// Chat runs the tool-calling loop against a Backend.
type Chat struct {
	Backend           Backend
	MaxToolIterations int              // Default max iterations for tool-calling loop (0 = use default 10)
	SystemLogger      SystemLogger     // Optional logger for system/debug logging
	ToolActionLogger  aitooling.Logger // Optional default logger for tool actions
	LogToolArguments  bool             // If true, log tool call arguments and responses at DEBUG level
	Archive           *ArchiveConfig   // Optional rolling archive of old messages (nil = send the whole log)
}

// ArchiveConfig enables context window archiving for a Chat.
type ArchiveConfig struct {
	Bounds     WindowBounds
	Summarizer Summarizer      // nil = BackendSummarizer over Chat.Backend
	Observer   ArchiveObserver // Optional
}

type chatRequest struct {
	messages          []Message
	tools             aitooling.ToolSet
	logCallback       aitooling.Logger
	maxToolIterations *int   // Pointer to distinguish between "not set" and "set to 0"
	speaker           string // Source stamped on assistant replies
}

// ChatOption is a function that configures a chatRequest.
// It receives a MessageFactory to create provider-specific messages.
type ChatOption func(*chatRequest, MessageFactory)

func WithToolActionLogger(callback aitooling.Logger) ChatOption {
	return func(cfg *chatRequest, _ MessageFactory) {
		cfg.logCallback = callback
	}
}

func WithTools(tools aitooling.ToolSet) ChatOption {
	return func(cfg *chatRequest, _ MessageFactory) {
		cfg.tools = tools
	}
}

func WithSystemMessage(text string) ChatOption {
	return func(cfg *chatRequest, factory MessageFactory) {
		cfg.messages = append(cfg.messages, factory.NewSystemMessage(text))
	}
}

func WithUserMessage(text string) ChatOption {
	return func(cfg *chatRequest, factory MessageFactory) {
		cfg.messages = append(cfg.messages, factory.NewUserMessage(text))
	}
}

// WithMessage appends an already built message, e.g. one restored from a transcript.
func WithMessage(msg Message) ChatOption {
	return func(cfg *chatRequest, _ MessageFactory) {
		cfg.messages = append(cfg.messages, msg)
	}
}

// WithSpeaker attributes the assistant's replies to the named agent, when the backend
// implements SourceStamper.
func WithSpeaker(name string) ChatOption {
	return func(cfg *chatRequest, _ MessageFactory) {
		cfg.speaker = name
	}
}

// WithMaxToolIterations sets the maximum number of tool-calling iterations for this chat request.
// This overrides the Chat.MaxToolIterations setting for this specific request.
func WithMaxToolIterations(max int) ChatOption {
	return func(cfg *chatRequest, _ MessageFactory) {
		cfg.maxToolIterations = &max
	}
}

func (c *Chat) buildRequest(opts []ChatOption) chatRequest {
	request := chatRequest{
		messages: []Message{},
		tools:    aitooling.ToolSet{},
	}
	for _, opt := range opts {
		opt(&request, c.Backend) // Backend implements MessageFactory interface
	}
	return request
}

// ChatWithState performs a chat with conversation history.
//
// LEADING system messages (via WithSystemMessage before any other message) are NOT stored
// in state. They are passed on every call and prepended to whatever is sent to the model,
// so they can carry dynamic content. Every other message is appended to the stored log.
//
// When Archive is configured, the model sees the archive summary, the live window and any
// pending tool calls instead of the whole log. The log in the returned state is never
// truncated.
func (c *Chat) ChatWithState(
	ctx context.Context,
	state ConversationState,
	opts ...ChatOption,
) (string, ConversationState, error) {
	request := c.buildRequest(opts)

	decoded := decodeState(ctx, c.Backend, c.logger(), state)
	leading, newMessages := splitLeadingSystemMessages(request.messages)
	log := append(decoded.messages, newMessages...)

	archive, err := c.newArchiveContext(decoded.archive)
	if err != nil {
		c.logError(ctx, "archive_configuration_invalid", err)
		return "", nil, err
	}

	// Use Chat-level default logger if no per-request logger provided
	toolLogger := request.logCallback
	if toolLogger == nil {
		if c.ToolActionLogger != nil {
			toolLogger = c.ToolActionLogger
		} else {
			toolLogger = &dummyLogger{}
		}
	}

	// Determine max iterations: per-call option > Chat field > default (10)
	maxIter := c.resolveMaxIterations(request.maxToolIterations)

	for iteration := 0; iteration < maxIter; iteration++ {
		c.logDebug(ctx, "starting_chat_iteration", "iteration", iteration, "log_length", len(log))

		prompt, err := c.prompt(ctx, leading, log, archive)
		if err != nil {
			c.logError(ctx, "context_window_failed", err, "iteration", iteration)
			return "", nil, err
		}

		response, err := c.Backend.ChatCompletion(ctx, prompt, request.tools)
		if err != nil {
			c.logError(ctx, "chat_completion_failed", err, "iteration", iteration)
			return "", nil, err
		}

		log = append(log, c.stamp(response.Message, request.speaker))

		switch response.FinishReason {
		case FinishReasonStop:
			c.logDebug(ctx, "chat_completed", "iteration", iteration, "prompt_length", len(prompt))

			archiveState := NewArchiveState()
			if archive != nil {
				archiveState = archive.State()
			}
			newState, err := encodeState(c.Backend.ProviderName(), log, archiveState)
			if err != nil {
				c.logError(ctx, "state_encoding_failed", err)
				return "", nil, err
			}
			return response.Message.Content(), newState, nil

		case FinishReasonToolCalls:
			c.logDebug(ctx, "executing_tools", "iteration", iteration, "count", len(response.Message.ToolCalls()))
			toolResults, err := c.executeTools(ctx, iteration, response.Message.ToolCalls(), request.tools, toolLogger)
			if err != nil {
				c.logError(ctx, "tool_execution_failed", err, "iteration", iteration)
				return "", nil, err
			}
			log = append(log, toolResults...)
			continue

		case FinishReasonLength:
			c.logError(ctx, "max_tokens_exceeded", nil)
			return "", nil, fmt.Errorf("conversation exceeded max tokens")

		default:
			c.logError(ctx, "unknown_finish_reason", nil, "reason", response.FinishReason)
			return "", nil, fmt.Errorf("unknown finish reason: %s", response.FinishReason)
		}
	}

	c.logError(ctx, "max_iterations_exceeded", nil, "max", maxIter)
	return "", nil, fmt.Errorf("exceeded max tool iterations (%d)", maxIter)
}

// Chat performs a stateless chat.
// This is a convenience wrapper around ChatWithState with nil state.
func (c *Chat) Chat(ctx context.Context, opts ...ChatOption) (string, error) {
	response, _, err := c.ChatWithState(ctx, nil, opts...)
	return response, err
}

// AppendToState adds messages to the state without calling the model, for example to record
// "The user has arrived at The Railway Station" between turns.
//
// Only message generation chat options are honoured. ALL specified messages are appended,
// including system messages. The archive state is kept as it was.
func (c *Chat) AppendToState(ctx context.Context, state ConversationState, opts ...ChatOption) ConversationState {
	request := c.buildRequest(opts)

	decoded := decodeState(ctx, c.Backend, c.logger(), state)
	messages := append(decoded.messages, request.messages...)

	newState, err := encodeState(c.Backend.ProviderName(), messages, decoded.archive)
	if err != nil {
		c.logError(ctx, "event_state_encoding_failed", err)
		return nil
	}
	return newState
}

// newArchiveContext builds the per-call archive context, or nil if archiving is off.
func (c *Chat) newArchiveContext(state ArchiveState) (*ArchiveContext, error) {
	if c.Archive == nil {
		return nil, nil
	}
	summarizer := c.Archive.Summarizer
	if summarizer == nil {
		summarizer = NewBackendSummarizer(c.Backend)
	}
	return NewArchiveContext(c.Archive.Bounds, summarizer, c.Backend,
		WithArchiveLogger(c.SystemLogger),
		WithArchiveObserver(c.Archive.Observer),
		WithArchiveState(state))
}

// prompt returns what is sent to the model: the caller's leading system messages followed by
// either the whole log or the archive context's view of it.
func (c *Chat) prompt(ctx context.Context, leading, log []Message, archive *ArchiveContext) ([]Message, error) {
	view := log
	if archive != nil {
		var err error
		if view, err = archive.Messages(ctx, log); err != nil {
			return nil, err
		}
	}
	result := make([]Message, 0, len(leading)+len(view))
	result = append(result, leading...)
	return append(result, view...), nil
}

// resolveMaxIterations determines the max iterations to use.
// Priority: 1) per-call option, 2) Chat.MaxToolIterations, 3) default (10)
func (c *Chat) resolveMaxIterations(override *int) int {
	if override != nil {
		return *override
	}
	if c.MaxToolIterations > 0 {
		return c.MaxToolIterations
	}
	return 10
}

// executeTools executes tool calls and returns tool result messages.
func (c *Chat) executeTools(ctx context.Context, iteration int, toolCalls []ToolCall, tools aitooling.ToolSet, logger aitooling.Logger) ([]Message, error) {
	runner := tools.Runner(ctx, logger)

	var toolMessages []Message
	for idx, call := range toolCalls {
		logFields := []interface{}{
			"iteration", iteration,
			"tool_call_index", idx,
			"tool_calls_count", len(toolCalls),
			"tool_name", call.Name,
			"tool_id", call.ID,
		}
		if c.LogToolArguments {
			logFields = append(logFields, "tool_args", call.Arguments)
		}
		c.logDebug(ctx, "executing_tool_call", logFields...)

		result, err := runner(&aitooling.ToolRequest{
			Name:   call.Name,
			Args:   call.Arguments,
			CallId: call.ID,
		})

		var resultContent string
		if err != nil {
			// Infrastructure failure, not a domain error. The model still needs a result.
			resultContent = fmt.Sprintf("Error: %v", err)
			c.logError(ctx, "tool_execution_error", err,
				"iteration", iteration,
				"tool_name", call.Name,
				"tool_id", call.ID,
			)
		} else {
			resultContent = result.Result
		}

		if c.LogToolArguments {
			c.logDebug(ctx, "tool_response",
				"iteration", iteration,
				"tool_call_index", idx,
				"tool_name", call.Name,
				"tool_id", call.ID,
				"response", resultContent,
			)
		}

		toolMessages = append(toolMessages, c.Backend.NewToolMessage(call.ID, resultContent))
	}

	return toolMessages, nil
}

func (c *Chat) stamp(msg Message, speaker string) Message {
	if stamper, ok := c.Backend.(SourceStamper); ok && speaker != "" {
		return stamper.WithSource(msg, speaker)
	}
	return msg
}

func (c *Chat) logger() SystemLogger {
	return orSilent(c.SystemLogger)
}

func (c *Chat) logDebug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	c.logger().Debug(ctx, msg, keysAndValues...)
}

func (c *Chat) logError(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
	c.logger().Error(ctx, msg, err, keysAndValues...)
}

type dummyLogger struct{}

func (d dummyLogger) Log(_ aitooling.ToolAction) {}

func (d dummyLogger) LogAll(_ []aitooling.ToolAction) {}
