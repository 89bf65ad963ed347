// Package metrics provides Prometheus metrics for the live development
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	EventsBroadcast *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	WSConnections   prometheus.Gauge
	ActiveProjects  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsBroadcast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livedev_events_broadcast_total",
				Help: "Total live events broadcast to subscribers, by event type.",
			},
			[]string{"event_type"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livedev_requests_total",
				Help: "Total HTTP requests by route and status.",
			},
			[]string{"route", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livedev_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "livedev_ws_connections",
				Help: "Number of attached live stream subscribers.",
			},
		),
		ActiveProjects: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "livedev_active_projects",
				Help: "Number of projects tracked by the manager.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsBroadcast)
	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.WSConnections)
	reg.MustRegister(m.ActiveProjects)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBroadcast increments the broadcast counter for one event type.
func (m *Metrics) RecordBroadcast(eventType string) {
	m.EventsBroadcast.WithLabelValues(eventType).Inc()
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
