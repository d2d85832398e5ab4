// Package metrics exposes Prometheus instrumentation for the sync client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slotsync"

// Update outcomes.
const (
	OutcomeApplied = "applied"
	OutcomeUnknown = "unknown_slot"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	updates       *prometheus.CounterVec
	events        *prometheus.CounterVec
	connected     prometheus.Gauge
	slots         prometheus.Gauge
	fetchDuration prometheus.Histogram
	fetchFailures prometheus.Counter
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Live updates received, by outcome.",
			},
			[]string{"outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_events_total",
				Help:      "Push channel lifecycle events, by type.",
			},
			[]string{"event"},
		),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the push channel is open.",
		}),
		slots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Time slots held in the local store.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Bulk fetch latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed bulk fetches.",
		}),
	}

	m.registry.MustRegister(
		m.updates,
		m.events,
		m.connected,
		m.slots,
		m.fetchDuration,
		m.fetchFailures,
		collectors.NewGoCollector(),
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

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UpdateApplied counts an update merged into the store.
func (m *Metrics) UpdateApplied() {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(OutcomeApplied).Inc()
}

// UpdateUnknown counts an update for an id not in the store.
func (m *Metrics) UpdateUnknown() {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(OutcomeUnknown).Inc()
}

// StreamEvent counts a lifecycle event and tracks the connected gauge.
// event is one of connect, disconnect, reconnecting, error.
func (m *Metrics) StreamEvent(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
	switch event {
	case "connect":
		m.connected.Set(1)
	case "disconnect", "reconnecting":
		m.connected.Set(0)
	}
}

// SetSlots records the store size.
func (m *Metrics) SetSlots(n int) {
	if m == nil {
		return
	}
	m.slots.Set(float64(n))
}

// ObserveFetch records one bulk fetch.
func (m *Metrics) ObserveFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.fetchFailures.Inc()
	}
}
