// Package metrics provides Prometheus metrics for the chat pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatMetrics records moderation and streaming outcomes per turn.
type ChatMetrics struct {
	registry *prometheus.Registry

	turns          *prometheus.CounterVec
	blocked        *prometheus.CounterVec
	flagged        *prometheus.CounterVec
	streamedTokens prometheus.Counter
	activeStreams  prometheus.Gauge
	turnLatency    prometheus.Histogram
}

// NewChatMetrics creates and registers the chat metrics on a fresh registry.
func NewChatMetrics() *ChatMetrics {
	registry := prometheus.NewRegistry()

	m := &ChatMetrics{
		registry: registry,
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tutorchat",
				Subsystem: "chat",
				Name:      "turns_total",
				Help:      "Chat turns by outcome (streamed, blocked, rejected, error)",
			},
			[]string{"outcome"},
		),
		blocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tutorchat",
				Subsystem: "moderation",
				Name:      "blocked_total",
				Help:      "Messages blocked by moderation category",
			},
			[]string{"category"},
		),
		flagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tutorchat",
				Subsystem: "moderation",
				Name:      "flagged_total",
				Help:      "Permitted messages annotated with a review flag",
			},
			[]string{"flag"},
		),
		streamedTokens: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "tutorchat",
				Subsystem: "chat",
				Name:      "streamed_tokens_total",
				Help:      "Provider-reported output tokens across completed streams",
			},
		),
		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tutorchat",
				Subsystem: "chat",
				Name:      "active_streams",
				Help:      "Streams currently open to clients",
			},
		),
		turnLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "tutorchat",
				Subsystem: "chat",
				Name:      "turn_latency_seconds",
				Help:      "End-to-end turn latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
	}

	registry.MustRegister(m.turns, m.blocked, m.flagged, m.streamedTokens, m.activeStreams, m.turnLatency)
	return m
}

func (m *ChatMetrics) RecordTurn(outcome string, seconds float64) {
	m.turns.WithLabelValues(outcome).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *ChatMetrics) RecordBlocked(category string) {
	m.blocked.WithLabelValues(category).Inc()
}

func (m *ChatMetrics) RecordFlags(flags []string) {
	for _, f := range flags {
		m.flagged.WithLabelValues(f).Inc()
	}
}

func (m *ChatMetrics) AddStreamedTokens(n int) {
	if n > 0 {
		m.streamedTokens.Add(float64(n))
	}
}

func (m *ChatMetrics) StreamStarted() { m.activeStreams.Inc() }
func (m *ChatMetrics) StreamEnded()   { m.activeStreams.Dec() }

// Handler returns the HTTP handler serving the metrics registry.
func (m *ChatMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
