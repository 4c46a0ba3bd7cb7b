// Package observability exposes docbot's Prometheus instruments.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. It
// implements agent.Recorder.
type Metrics struct {
	Ingestions        *prometheus.CounterVec
	ChunksStored      *prometheus.CounterVec
	Responses         *prometheus.CounterVec
	ResponseLatency   *prometheus.HistogramVec
	CollaboratorCalls *prometheus.CounterVec
	CollaboratorTime  *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	ActiveSessions    prometheus.GaugeFunc
}

// NewMetrics registers the instruments under namespace. sessions, if not
// nil, backs the active_sessions gauge.
func NewMetrics(namespace string, sessions func() int) *Metrics {
	m := &Metrics{
		Ingestions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "File ingestions by category and outcome.",
		}, []string{"category", "outcome"}),
		ChunksStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_stored_total",
			Help:      "Memory records written during ingestion, by category.",
		}, []string{"category"}),
		Responses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Replies by detected intent and outcome.",
		}, []string{"intent", "outcome"}),
		ResponseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_latency_ms",
			Help:      "Time to produce a reply in milliseconds.",
			Buckets:   []float64{5, 50, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"intent"}),
		CollaboratorCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_calls_total",
			Help:      "Calls to models, OCR and storage by collaborator and outcome.",
		}, []string{"collaborator", "outcome"}),
		CollaboratorTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_latency_ms",
			Help:      "Collaborator call latency in milliseconds.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 5000, 30000},
		}, []string{"collaborator"}),
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP API requests by route and status code.",
		}, []string{"route", "code"}),
	}
	if sessions != nil {
		m.ActiveSessions = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}, func() float64 { return float64(sessions()) })
	}
	return m
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Ingested records one ingestion.
func (m *Metrics) Ingested(category string, stored int, err error) {
	m.Ingestions.WithLabelValues(category, outcome(err)).Inc()
	m.ChunksStored.WithLabelValues(category).Add(float64(stored))
}

// Responded records one reply.
func (m *Metrics) Responded(intent string, d time.Duration, err error) {
	m.Responses.WithLabelValues(intent, outcome(err)).Inc()
	m.ResponseLatency.WithLabelValues(intent).Observe(float64(d.Milliseconds()))
}

// CollaboratorCall records one collaborator call.
func (m *Metrics) CollaboratorCall(name string, d time.Duration, err error) {
	m.CollaboratorCalls.WithLabelValues(name, outcome(err)).Inc()
	m.CollaboratorTime.WithLabelValues(name).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
