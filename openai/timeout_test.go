package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/aitooling"
)

// delayedServer answers every request with a stop completion after delay.
func delayedServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:     "test-id",
			Object: "chat.completion",
			Model:  "gpt-4.1-mini",
			Choices: []Choice{{
				Message:      Message{Role: "assistant", Content: "Test response"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

// TestTimeoutBehavior checks that whichever of the context deadline and the HTTP client
// timeout is shorter ends the request.
func TestTimeoutBehavior(t *testing.T) {
	tests := []struct {
		name              string
		contextTimeout    time.Duration // 0 means no context timeout
		httpClientTimeout time.Duration // 0 means no HTTP client timeout
		serverDelay       time.Duration
		expectTimeout     bool
		contextExpired    bool
	}{
		{
			name:              "context_timeout_wins",
			contextTimeout:    100 * time.Millisecond,
			httpClientTimeout: 500 * time.Millisecond,
			serverDelay:       300 * time.Millisecond,
			expectTimeout:     true,
			contextExpired:    true,
		},
		{
			name:              "http_client_timeout_wins",
			contextTimeout:    500 * time.Millisecond,
			httpClientTimeout: 100 * time.Millisecond,
			serverDelay:       300 * time.Millisecond,
			expectTimeout:     true,
		},
		{
			name:              "no_timeout_fast_response",
			contextTimeout:    500 * time.Millisecond,
			httpClientTimeout: 500 * time.Millisecond,
			serverDelay:       20 * time.Millisecond,
		},
		{
			name:              "no_context_timeout_http_client_times_out",
			httpClientTimeout: 100 * time.Millisecond,
			serverDelay:       300 * time.Millisecond,
			expectTimeout:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := delayedServer(t, tt.serverDelay)

			httpClient := &http.Client{Timeout: tt.httpClientTimeout}
			client, err := NewClient("test-api-key", WithBaseURL(server.URL), WithHTTPClient(httpClient))
			if err != nil {
				t.Fatalf("Failed to create client: %v", err)
			}

			ctx := context.Background()
			if tt.contextTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.contextTimeout)
				defer cancel()
			}

			_, err = client.sendRequest(ctx, ChatCompletionRequest{
				Model:    "gpt-4.1-mini",
				Messages: []Message{{Role: "user", Content: "Test message"}},
			})

			if tt.expectTimeout && err == nil {
				t.Fatal("Expected timeout error, but request succeeded")
			}
			if !tt.expectTimeout && err != nil {
				t.Fatalf("Expected success, but got error: %v", err)
			}
			if tt.contextExpired && ctx.Err() != context.DeadlineExceeded {
				t.Errorf("Expected context.DeadlineExceeded, got %v", ctx.Err())
			}
		})
	}
}

// TestDefaultClientTimeout verifies the default HTTP timeout.
func TestDefaultClientTimeout(t *testing.T) {
	client, err := NewClient("test-api-key")
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if client.httpClient.Timeout != defaultTimeout {
		t.Errorf("Expected default timeout of %v, got %v", defaultTimeout, client.httpClient.Timeout)
	}
}

// TestChatCompletionTimeout checks a context deadline ends ChatCompletion.
func TestChatCompletionTimeout(t *testing.T) {
	server := delayedServer(t, 300*time.Millisecond)

	client, err := NewClient("test-api-key",
		WithBaseURL(server.URL),
		WithHTTPClient(&http.Client{Timeout: time.Second}),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = client.ChatCompletion(ctx, []cyberalchemy.Message{client.NewUserMessage("Test")}, aitooling.ToolSet{})

	if err == nil {
		t.Error("Expected timeout error from ChatCompletion")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got: %v", ctx.Err())
	}
}
