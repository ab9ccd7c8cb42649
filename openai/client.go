package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/aitooling"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
	defaultTimeout = 60 * time.Second

	providerOpenAI = "openai"
	providerAzure  = "azure"
)

var (
	// ErrMissingAPIKey is returned when attempting to create a client with an empty API key.
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrNoChoices is returned when the API answers without any completion choice.
	ErrNoChoices = errors.New("no choices returned from API")
)

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client is an OpenAI (or Azure OpenAI) chat completions client.
type Client struct {
	apiKey          string
	baseURL         string
	model           string
	azure           *azureDeployment
	httpClient      *http.Client
	systemLogger    cyberalchemy.SystemLogger // For system/debug logging
	requestDefaults map[string]interface{}    // Default request parameters (temperature, max_tokens, etc.)
}

type azureDeployment struct {
	endpoint   string
	deployment string
	apiVersion string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a client with functional options.
// Returns ErrMissingAPIKey if apiKey is empty.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		requestDefaults: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// WithSystemLogger sets a custom system logger for the client.
func WithSystemLogger(logger cyberalchemy.SystemLogger) ClientOption {
	return func(c *Client) {
		c.systemLogger = logger
	}
}

// WithBaseURL sets a custom base URL for the OpenAI API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithModel sets a custom model for completions.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithAzureDeployment sends requests to an Azure OpenAI deployment instead of api.openai.com.
// The API key is sent in the api-key header.
func WithAzureDeployment(endpoint, deployment, apiVersion string) ClientOption {
	return func(c *Client) {
		c.azure = &azureDeployment{
			endpoint:   strings.TrimRight(endpoint, "/"),
			deployment: deployment,
			apiVersion: apiVersion,
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTemperature sets the default temperature for requests.
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) {
		c.requestDefaults["temperature"] = temperature
	}
}

// WithMaxTokens sets the default max_tokens for requests.
func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) {
		c.requestDefaults["max_tokens"] = maxTokens
	}
}

// WithRequestParam sets an arbitrary request parameter.
// Use this for model-specific parameters like max_completion_tokens or reasoning_effort.
func WithRequestParam(key string, value interface{}) ClientOption {
	return func(c *Client) {
		c.requestDefaults[key] = value
	}
}

// Model returns the model (or Azure deployment) requests are sent to.
func (c *Client) Model() string {
	if c.azure != nil {
		return c.azure.deployment
	}
	return c.model
}

// ProviderName returns "azure" for Azure deployments and "openai" otherwise.
func (c *Client) ProviderName() string {
	if c.azure != nil {
		return providerAzure
	}
	return providerOpenAI
}

// NewSystemMessage creates a system message with the given content.
func (c *Client) NewSystemMessage(content string) cyberalchemy.Message {
	msg, _ := newMessage(Message{Role: "system", Content: content})
	return msg
}

// NewUserMessage creates a user message with the given content.
func (c *Client) NewUserMessage(content string) cyberalchemy.Message {
	msg, _ := newMessage(Message{Role: "user", Content: content})
	return msg
}

// NewToolMessage creates a tool result message.
func (c *Client) NewToolMessage(toolCallID, content string) cyberalchemy.Message {
	msg, _ := newMessage(Message{
		Role:       "tool",
		Content:    content,
		ToolCallID: toolCallID,
	})
	return msg
}

// WithSource returns a copy of msg attributed to source through the name field.
func (c *Client) WithSource(msg cyberalchemy.Message, source string) cyberalchemy.Message {
	parsed := toOpenAI(msg)
	parsed.Name = sanitizeName(source)
	stamped, err := newMessage(parsed)
	if err != nil {
		return msg
	}
	return stamped
}

// UnmarshalMessage reconstructs a message from its serialized form.
func (c *Client) UnmarshalMessage(data []byte) (cyberalchemy.Message, error) {
	return unmarshalMessage(data)
}

// ChatCompletion makes a single API call and returns the response.
// The Chat layer handles the tool-calling loop.
func (c *Client) ChatCompletion(
	ctx context.Context,
	messages []cyberalchemy.Message,
	tools aitooling.ToolSet,
) (*cyberalchemy.ChatResponse, error) {
	c.logSystemDebug(ctx, "openai_request_start",
		"provider", c.ProviderName(),
		"model", c.Model(),
		"message_count", len(messages))

	openaiMessages := make([]Message, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = toOpenAI(msg)
	}

	req := ChatCompletionRequest{
		Model:    c.model,
		Messages: openaiMessages,
		Tools:    mapToolset(tools),
	}

	started := time.Now()
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		c.logSystemError(ctx, "openai_request_failed", err, "elapsed", time.Since(started))
		return nil, err
	}

	if len(resp.Choices) == 0 {
		c.logSystemError(ctx, "openai_no_choices", ErrNoChoices)
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	c.logSystemDebug(ctx, "openai_response",
		"finish_reason", choice.FinishReason,
		"tool_calls_count", len(choice.Message.ToolCalls),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"reasoning_tokens", resp.Usage.reasoningTokens(),
		"response_model", resp.Model,
		"elapsed", time.Since(started),
	)

	responseMessage, err := newMessage(choice.Message)
	if err != nil {
		return nil, err
	}

	return &cyberalchemy.ChatResponse{
		Message:      responseMessage,
		FinishReason: cyberalchemy.FinishReason(choice.FinishReason),
		Usage: &cyberalchemy.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// endpoint returns the chat completions URL for this client.
func (c *Client) endpoint() string {
	if c.azure == nil {
		return c.baseURL + "/chat/completions"
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.azure.endpoint, url.PathEscape(c.azure.deployment), url.QueryEscape(c.azure.apiVersion))
}

// sendRequest sends a single API request and returns the response.
func (c *Client) sendRequest(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := c.mergeRequestDefaults(req)
	if err != nil {
		return nil, fmt.Errorf("prepare request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.azure != nil {
		httpReq.Header.Set("api-key", c.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &chatResp, nil
}

// mergeRequestDefaults marshals the base request and merges in requestDefaults
// that the request does not already set.
func (c *Client) mergeRequestDefaults(req ChatCompletionRequest) ([]byte, error) {
	baseJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal base request: %w", err)
	}

	var requestMap map[string]interface{}
	if err := json.Unmarshal(baseJSON, &requestMap); err != nil {
		return nil, fmt.Errorf("unmarshal to map: %w", err)
	}

	for key, value := range c.requestDefaults {
		if _, exists := requestMap[key]; !exists {
			requestMap[key] = value
		}
	}

	return json.Marshal(requestMap)
}

// mapToolset converts aitooling.ToolSet to OpenAI API tool format.
func mapToolset(tools aitooling.ToolSet) []Tool {
	result := make([]Tool, len(tools))
	for i, tool := range tools {
		result[i] = Tool{
			Type: "function",
			Function: Function{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		}
	}
	return result
}

func (c *Client) logSystemDebug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if c.systemLogger != nil {
		c.systemLogger.Debug(ctx, msg, keysAndValues...)
	}
}

func (c *Client) logSystemError(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
	if c.systemLogger != nil {
		c.systemLogger.Error(ctx, msg, err, keysAndValues...)
	}
}

// sanitizeName maps a speaker to the characters the name field accepts.
func sanitizeName(source string) string {
	var b strings.Builder
	for _, r := range source {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
