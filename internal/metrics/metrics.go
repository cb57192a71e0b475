// Package metrics provides Prometheus metrics for the gatekeeper service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	GrantsTotal      *prometheus.CounterVec
	OrdersTotal      prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_decisions_total",
				Help: "Total access decisions by action and reason code.",
			},
			[]string{"action", "reason"},
		),
		GrantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_grants_total",
				Help: "Total grant upserts by audit action.",
			},
			[]string{"action"},
		),
		OrdersTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatekeeper_purchase_orders_total",
				Help: "Total purchase orders submitted.",
			},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_order_transitions_total",
				Help: "Total workflow transitions by target status and result.",
			},
			[]string{"status", "result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatekeeper_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		registry: reg,
	}

	reg.MustRegister(m.DecisionsTotal)
	reg.MustRegister(m.GrantsTotal)
	reg.MustRegister(m.OrdersTotal)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision increments the decision counter.
func (m *Metrics) RecordDecision(action, reason string) {
	m.DecisionsTotal.WithLabelValues(action, reason).Inc()
}

// RecordGrant increments the grant counter.
func (m *Metrics) RecordGrant(action string) {
	m.GrantsTotal.WithLabelValues(action).Inc()
}

// RecordOrder increments the submitted-order counter.
func (m *Metrics) RecordOrder() {
	m.OrdersTotal.Inc()
}

// RecordTransition increments the transition counter.
func (m *Metrics) RecordTransition(status, result string) {
	m.TransitionsTotal.WithLabelValues(status, result).Inc()
}

// ObserveDuration records request duration for a route.
func (m *Metrics) ObserveDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}
