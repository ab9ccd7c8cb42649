package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m0rjc/cyberalchemy"
	"github.com/m0rjc/cyberalchemy/openai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ cyberalchemy.ArchiveObserver = (*ArchiveMetrics)(nil)

// Test: Observer callbacks update the counters
func TestArchiveMetrics_Records(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewArchiveMetrics(registry)

	m.ArchiveSucceeded(30, 2*time.Second)
	m.ArchiveSucceeded(5, time.Second)
	m.ArchiveFailed(errors.New("unavailable"), time.Second)
	m.WindowMeasured(21)

	if got := testutil.ToFloat64(m.passesTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful passes, got %v", got)
	}
	if got := testutil.ToFloat64(m.passesTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("Expected 1 failed pass, got %v", got)
	}
	if got := testutil.ToFloat64(m.messagesTotal); got != 35 {
		t.Errorf("Expected 35 archived messages, got %v", got)
	}
	if got := testutil.CollectAndCount(m.summarizeSeconds); got != 2 {
		t.Errorf("Expected 2 duration series, got %d", got)
	}
}

// Test: The metrics drive a real archive context
func TestArchiveMetrics_WithArchiveContext(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewArchiveMetrics(registry)
	summarizer := cyberalchemy.SummarizerFunc(func(_ context.Context, _, _ string) (string, error) {
		return "summary", nil
	})
	client, _ := openai.NewClient("sk-test")
	archive, err := cyberalchemy.NewArchiveContext(cyberalchemy.WindowBounds{MinMessages: 2, MaxMessages: 4},
		summarizer, client, cyberalchemy.WithArchiveObserver(m))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	log := make([]cyberalchemy.Message, 5)
	for i := range log {
		log[i] = client.NewUserMessage("m")
	}
	if _, err := archive.Messages(context.Background(), log); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := testutil.ToFloat64(m.messagesTotal); got != 2 {
		t.Errorf("Expected 2 archived messages, got %v", got)
	}
	if got := testutil.CollectAndCount(m.liveWindow); got != 1 {
		t.Errorf("Expected the live window histogram, got %d series", got)
	}
}

// Test: Registering twice on one registry panics
func TestNewArchiveMetrics_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewArchiveMetrics(registry)

	defer func() {
		if recover() == nil {
			t.Error("Expected a panic on duplicate registration")
		}
	}()
	NewArchiveMetrics(registry)
}

// Test: Handler exposes the registered metrics
func TestHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewArchiveMetrics(registry)
	m.ArchiveSucceeded(3, time.Second)

	server := httptest.NewServer(Handler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `cyberalchemy_archive_passes_total{result="success"} 1`) {
		t.Errorf("Expected the pass counter in the output, got:\n%s", body)
	}
}
