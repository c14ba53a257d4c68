// Package metrics exposes Prometheus instrumentation for the assistant.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Metrics holds the collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	connects       *prometheus.CounterVec
	queries        *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	analyzeLatency prometheus.Histogram
	activeSessions prometheus.Gauge
	indexedItems   prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpassist",
			Name:      "site_connects_total",
			Help:      "Site connect attempts by outcome.",
		}, []string{"outcome"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpassist",
			Name:      "queries_total",
			Help:      "Visitor queries by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wpassist",
			Name:      "fetch_duration_seconds",
			Help:      "Time to load posts and pages from a site.",
			Buckets:   prometheus.DefBuckets,
		}),
		analyzeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wpassist",
			Name:      "analyze_duration_seconds",
			Help:      "Time spent waiting for the language model.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wpassist",
			Name:      "active_sessions",
			Help:      "Widget sessions currently held in memory.",
		}),
		indexedItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wpassist",
			Name:      "indexed_items",
			Help:      "Items loaded per successful connect.",
			Buckets:   []float64{0, 5, 10, 20, 30, 40},
		}),
	}
	reg.MustRegister(
		m.connects,
		m.queries,
		m.fetchDuration,
		m.analyzeLatency,
		m.activeSessions,
		m.indexedItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveConnect records a connect attempt.
func (m *Metrics) ObserveConnect(outcome string, items int, took time.Duration) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(took.Seconds())
	if outcome == OutcomeOK {
		m.indexedItems.Observe(float64(items))
	}
}

// ObserveQuery records a finished query.
func (m *Metrics) ObserveQuery(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.analyzeLatency.Observe(took.Seconds())
}

// SetActiveSessions updates the session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
