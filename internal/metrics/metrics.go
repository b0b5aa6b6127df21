// Package metrics holds the bridge's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feishubridge"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	remoteCalls     *prometheus.CounterVec
	mediaFailures   *prometheus.CounterVec
	deliveredChunks *prometheus.CounterVec
	typingFailures  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Feishu API calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		mediaFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_item_failures_total",
			Help:      "Media items replaced by a failure placeholder.",
		}, []string{"account"}),
		deliveredChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "text_chunks_delivered_total",
			Help:      "Text chunks sent, by render mode.",
		}, []string{"account", "render"}),
		typingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "typing_indicator_failures_total",
			Help:      "Typing indicator add/remove failures.",
		}, []string{"action"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remoteCalls,
		m.mediaFailures,
		m.deliveredChunks,
		m.typingFailures,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRemoteCall counts one Feishu API call.
func (m *Metrics) ObserveRemoteCall(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.remoteCalls.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) MediaItemFailed(accountID string) {
	if m == nil {
		return
	}
	m.mediaFailures.WithLabelValues(accountID).Inc()
}

func (m *Metrics) ChunkDelivered(accountID, render string) {
	if m == nil {
		return
	}
	m.deliveredChunks.WithLabelValues(accountID, render).Inc()
}

func (m *Metrics) TypingFailed(action string) {
	if m == nil {
		return
	}
	m.typingFailures.WithLabelValues(action).Inc()
}
