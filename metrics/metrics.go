// Package metrics exports Prometheus metrics for context window archiving.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cyberalchemy"

// ArchiveMetrics records archive passes. It implements cyberalchemy.ArchiveObserver.
//
// Metrics:
//   - cyberalchemy_archive_passes_total: compaction passes by result (success, failure)
//   - cyberalchemy_archive_messages_total: messages moved behind the archive cursor
//   - cyberalchemy_archive_summarize_seconds: summarization call duration
//   - cyberalchemy_archive_live_window_messages: live window size sent to the model
type ArchiveMetrics struct {
	passesTotal      *prometheus.CounterVec
	messagesTotal    prometheus.Counter
	summarizeSeconds *prometheus.HistogramVec
	liveWindow       prometheus.Histogram
}

// NewArchiveMetrics creates and registers the archive metrics with registry.
func NewArchiveMetrics(registry prometheus.Registerer) *ArchiveMetrics {
	m := &ArchiveMetrics{
		passesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "passes_total",
				Help:      "Total number of archive compaction passes",
			},
			[]string{"result"},
		),
		messagesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "messages_total",
				Help:      "Total number of messages folded into archive summaries",
			},
		),
		summarizeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "summarize_seconds",
				Help:      "Duration of summarization calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
			},
			[]string{"result"},
		),
		liveWindow: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "archive",
				Name:      "live_window_messages",
				Help:      "Number of live window messages sent to the model",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}

	registry.MustRegister(
		m.passesTotal,
		m.messagesTotal,
		m.summarizeSeconds,
		m.liveWindow,
	)
	return m
}

func (m *ArchiveMetrics) ArchiveSucceeded(archived int, elapsed time.Duration) {
	m.passesTotal.WithLabelValues("success").Inc()
	m.messagesTotal.Add(float64(archived))
	m.summarizeSeconds.WithLabelValues("success").Observe(elapsed.Seconds())
}

func (m *ArchiveMetrics) ArchiveFailed(_ error, elapsed time.Duration) {
	m.passesTotal.WithLabelValues("failure").Inc()
	m.summarizeSeconds.WithLabelValues("failure").Observe(elapsed.Seconds())
}

func (m *ArchiveMetrics) WindowMeasured(live int) {
	m.liveWindow.Observe(float64(live))
}

// Handler serves the metrics gathered by gatherer in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
