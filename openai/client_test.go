package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/aitooling"
)

// capturedRequest is what the mock server saw.
type capturedRequest struct {
	path   string
	query  string
	header http.Header
	body   map[string]interface{}
}

// mockServer records each request and answers with response.
func mockServer(t *testing.T, status int, response interface{}) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.header = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &captured.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func stopResponse(content string) ChatCompletionResponse {
	return ChatCompletionResponse{
		Choices: []Choice{{
			Message:      Message{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}
}

// Test: NewClient with empty API key returns ErrMissingAPIKey
func TestNewClient_EmptyAPIKey_ReturnsError(t *testing.T) {
	client, err := NewClient("", WithModel("o4-mini"))

	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
	if client != nil {
		t.Error("NewClient with empty API key should return nil client")
	}
}

// Test: NewClient applies defaults and options
func TestNewClient_Options(t *testing.T) {
	logger := cyberalchemy.NewSilentLogger()
	httpClient := &http.Client{}

	tests := []struct {
		name  string
		opts  []ClientOption
		check func(t *testing.T, c *Client)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c *Client) {
				if c.model != defaultModel {
					t.Errorf("Expected model=%s, got %s", defaultModel, c.model)
				}
				if c.baseURL != defaultBaseURL {
					t.Errorf("Expected baseURL=%s, got %s", defaultBaseURL, c.baseURL)
				}
				if c.ProviderName() != "openai" {
					t.Errorf("Expected provider openai, got %s", c.ProviderName())
				}
				if c.requestDefaults == nil {
					t.Error("Expected requestDefaults to be initialized")
				}
			},
		},
		{
			name: "model_and_base_url",
			opts: []ClientOption{WithModel("o4-mini"), WithBaseURL("https://proxy.example.com/v1/")},
			check: func(t *testing.T, c *Client) {
				if c.Model() != "o4-mini" {
					t.Errorf("Expected model=o4-mini, got %s", c.Model())
				}
				if c.baseURL != "https://proxy.example.com/v1" {
					t.Errorf("Expected trailing slash trimmed, got %s", c.baseURL)
				}
			},
		},
		{
			name: "http_client_and_logger",
			opts: []ClientOption{WithHTTPClient(httpClient), WithSystemLogger(logger)},
			check: func(t *testing.T, c *Client) {
				if c.httpClient != httpClient {
					t.Error("Expected custom HTTP client to be set")
				}
				if c.systemLogger != logger {
					t.Error("Expected custom logger to be set")
				}
			},
		},
		{
			name: "request_params",
			opts: []ClientOption{WithTemperature(0.5), WithMaxTokens(100), WithRequestParam("reasoning_effort", "low")},
			check: func(t *testing.T, c *Client) {
				if c.requestDefaults["temperature"] != 0.5 {
					t.Errorf("Expected temperature=0.5, got %v", c.requestDefaults["temperature"])
				}
				if c.requestDefaults["max_tokens"] != 100 {
					t.Errorf("Expected max_tokens=100, got %v", c.requestDefaults["max_tokens"])
				}
				if c.requestDefaults["reasoning_effort"] != "low" {
					t.Errorf("Expected reasoning_effort=low, got %v", c.requestDefaults["reasoning_effort"])
				}
			},
		},
		{
			name: "azure_deployment",
			opts: []ClientOption{WithAzureDeployment("https://res.openai.azure.com/", "chat-o4", "2024-12-01-preview")},
			check: func(t *testing.T, c *Client) {
				if c.ProviderName() != "azure" {
					t.Errorf("Expected provider azure, got %s", c.ProviderName())
				}
				if c.Model() != "chat-o4" {
					t.Errorf("Expected model to report the deployment, got %s", c.Model())
				}
				expected := "https://res.openai.azure.com/openai/deployments/chat-o4/chat/completions?api-version=2024-12-01-preview"
				if c.endpoint() != expected {
					t.Errorf("Expected endpoint %s, got %s", expected, c.endpoint())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("sk-test", tt.opts...)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			tt.check(t, client)
		})
	}
}

// Test: Client implements Backend and SourceStamper
func TestClient_ImplementsInterfaces(t *testing.T) {
	var _ cyberalchemy.Backend = &Client{}
	var _ cyberalchemy.SourceStamper = &Client{}
}

// Test: Tool call conversion round-trips through the OpenAI form
func TestConvertToolCalls_RoundTrip(t *testing.T) {
	input := []cyberalchemy.ToolCall{{ID: "call_abc123", Name: "get_agent_by_name", Arguments: `{"name":"Alice"}`}}

	wire := convertToolCallsToOpenAI(input)
	if len(wire) != 1 || wire[0].Type != "function" {
		t.Fatalf("Expected one function call, got %+v", wire)
	}

	back := convertToolCallsFromOpenAI(wire)
	if len(back) != 1 || back[0] != input[0] {
		t.Errorf("Expected %+v, got %+v", input[0], back)
	}

	if convertToolCallsToOpenAI(nil) != nil || convertToolCallsFromOpenAI(nil) != nil {
		t.Error("Expected nil for empty input")
	}
}

// Test: mapToolset keeps name, description and schema
func TestMapToolset(t *testing.T) {
	tools := aitooling.ToolSet{&aitooling.FunctionTool{
		ToolName:        "get_all_agent_info",
		ToolDescription: "List agents",
	}}

	result := mapToolset(tools)

	if len(result) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(result))
	}
	if result[0].Type != "function" || result[0].Function.Name != "get_all_agent_info" {
		t.Errorf("Unexpected tool mapping: %+v", result[0])
	}
	var params map[string]interface{}
	json.Unmarshal(result[0].Function.Parameters, &params)
	if params["type"] != "object" {
		t.Error("Parameters schema not preserved")
	}
}

// Test: ChatCompletion against the OpenAI API sends bearer auth and merges defaults
func TestClient_ChatCompletion_OpenAI(t *testing.T) {
	server, captured := mockServer(t, http.StatusOK, stopResponse("Hello from mock server"))

	client, _ := NewClient("sk-test", WithBaseURL(server.URL), WithModel("o4-mini"), WithTemperature(0.2))

	result, err := client.ChatCompletion(context.Background(),
		[]cyberalchemy.Message{client.NewUserMessage("Test")}, aitooling.ToolSet{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if captured.path != "/chat/completions" {
		t.Errorf("Expected /chat/completions, got %s", captured.path)
	}
	if captured.header.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Expected bearer auth, got '%s'", captured.header.Get("Authorization"))
	}
	if captured.body["model"] != "o4-mini" {
		t.Errorf("Expected model o4-mini, got %v", captured.body["model"])
	}
	if captured.body["temperature"] != 0.2 {
		t.Errorf("Expected temperature merged, got %v", captured.body["temperature"])
	}
	if result.Message.Content() != "Hello from mock server" {
		t.Errorf("Expected mock response, got '%s'", result.Message.Content())
	}
	if result.FinishReason != cyberalchemy.FinishReasonStop {
		t.Errorf("Expected stop reason, got %s", result.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Errorf("Expected usage with 15 tokens, got %+v", result.Usage)
	}
}

// Test: ChatCompletion against Azure uses the deployment URL and api-key header
func TestClient_ChatCompletion_Azure(t *testing.T) {
	server, captured := mockServer(t, http.StatusOK, stopResponse("Hi"))

	client, _ := NewClient("azure-key", WithAzureDeployment(server.URL, "mini", "2024-06-01"))

	if _, err := client.ChatCompletion(context.Background(),
		[]cyberalchemy.Message{client.NewUserMessage("Test")}, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if captured.path != "/openai/deployments/mini/chat/completions" {
		t.Errorf("Unexpected path %s", captured.path)
	}
	if captured.query != "api-version=2024-06-01" {
		t.Errorf("Unexpected query %s", captured.query)
	}
	if captured.header.Get("api-key") != "azure-key" {
		t.Errorf("Expected api-key header, got '%s'", captured.header.Get("api-key"))
	}
	if captured.header.Get("Authorization") != "" {
		t.Error("Expected no Authorization header for Azure")
	}
}

// Test: Non-200 answers become APIError with the API's message
func TestClient_ChatCompletion_APIError(t *testing.T) {
	var errBody ErrorResponse
	errBody.Error.Message = "rate limited"
	server, _ := mockServer(t, http.StatusTooManyRequests, errBody)

	client, _ := NewClient("sk-test", WithBaseURL(server.URL))

	_, err := client.ChatCompletion(context.Background(),
		[]cyberalchemy.Message{client.NewUserMessage("Test")}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Message != "rate limited" {
		t.Errorf("Unexpected APIError %+v", apiErr)
	}
}

// Test: A response without choices is an error
func TestClient_ChatCompletion_NoChoices(t *testing.T) {
	server, _ := mockServer(t, http.StatusOK, ChatCompletionResponse{})
	client, _ := NewClient("sk-test", WithBaseURL(server.URL))

	_, err := client.ChatCompletion(context.Background(),
		[]cyberalchemy.Message{client.NewUserMessage("Test")}, nil)

	if !errors.Is(err, ErrNoChoices) {
		t.Errorf("Expected ErrNoChoices, got %v", err)
	}
}

// Test: WithSource stamps a sanitized name that survives marshal and unmarshal
func TestClient_WithSource_RoundTrip(t *testing.T) {
	client, _ := NewClient("sk-test")
	original, _ := newMessage(Message{Role: "assistant", Content: "Bonjour"})

	stamped := client.WithSource(original, "French Tutor")

	if stamped.Source() != "French_Tutor" {
		t.Errorf("Expected source 'French_Tutor', got '%s'", stamped.Source())
	}
	if original.Source() != "" {
		t.Error("Expected original message to be unchanged")
	}

	raw, _ := stamped.MarshalJSON()
	restored, err := client.UnmarshalMessage(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if restored.Source() != "French_Tutor" || restored.Content() != "Bonjour" {
		t.Errorf("Unexpected restored message: %s %s", restored.Source(), restored.Content())
	}
	if cyberalchemy.KindOf(restored) != cyberalchemy.KindAssistantText {
		t.Errorf("Expected assistant text, got %s", cyberalchemy.KindOf(restored))
	}
}

// Test: UnmarshalMessage keeps unknown fields
func TestClient_UnmarshalMessage_PreservesUnknownFields(t *testing.T) {
	client, _ := NewClient("sk-test")
	raw := []byte(`{"role":"assistant","content":"hi","refusal":null,"annotations":[]}`)

	msg, err := client.UnmarshalMessage(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	out, _ := msg.MarshalJSON()
	if string(out) != string(raw) {
		t.Errorf("Expected raw JSON preserved, got %s", out)
	}
}

// Test: Reasoning token details are optional
func TestUsage_ReasoningTokens(t *testing.T) {
	var usage Usage
	json.Unmarshal([]byte(`{"prompt_tokens":5,"completion_tokens":40,"total_tokens":45,"completion_tokens_details":{"reasoning_tokens":32}}`), &usage)
	if usage.reasoningTokens() != 32 {
		t.Errorf("Expected 32 reasoning tokens, got %d", usage.reasoningTokens())
	}
	if (Usage{}).reasoningTokens() != 0 {
		t.Error("Expected 0 without details")
	}
}
