// Package metrics exposes Prometheus instrumentation for the sync server.
//
// Each Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tacmap"

// Inbound message outcomes
const (
	InboundRelayed     = "relayed"
	InboundMalformed   = "malformed"
	InboundIgnored     = "ignored"
	InboundRejected    = "rejected"
	InboundRateLimited = "rate_limited"
)

// Delivery outcomes
const (
	DeliverySent    = "sent"
	DeliveryDropped = "dropped"
)

// Metrics holds every collector the server records into
type Metrics struct {
	registry *prometheus.Registry

	liveConnections prometheus.Gauge
	inbound         *prometheus.CounterVec
	deliveries      *prometheus.CounterVec
	markerMutations *prometheus.CounterVec
	logins          *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Currently open real-time connections",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_inbound_messages_total",
			Help:      "Inbound real-time messages by outcome",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_deliveries_total",
			Help:      "Per-connection message deliveries by outcome",
		}, []string{"result"}),
		markerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marker_mutations_total",
			Help:      "Marker add/remove attempts by outcome",
		}, []string{"action", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST request latency",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.liveConnections,
		m.inbound,
		m.deliveries,
		m.markerMutations,
		m.logins,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

func (m *Metrics) Inbound(result string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(result).Inc()
}

// Deliveries adds n per-connection deliveries with the given outcome
func (m *Metrics) Deliveries(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveries.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) MarkerMutation(action, result string) {
	if m == nil {
		return
	}
	m.markerMutations.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, http.StatusText(status)).Observe(d.Seconds())
}
