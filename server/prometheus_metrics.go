package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "licenseserver"

// PrometheusMetrics implements ServerMetrics on a dedicated Prometheus registry.
type PrometheusMetrics struct {
	Registry *prometheus.Registry

	requests          *prometheus.CounterVec
	latency           *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	activeConnections prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors and registers them in a new registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		Registry: registry,

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "requests",
			Name:      "total",
			Help:      "Finished requests by command, outcome and classification",
		}, []string{"command", "outcome", "valid"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "requests",
			Name:      "duration_seconds",
			Help:      "Time from accept until the connection closed",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"command"}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "License store failures by command",
		}, []string{"command"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "connections",
			Name:      "rejected_total",
			Help:      "Connections dropped before a request was read",
		}, []string{"reason"}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "connections",
			Name:      "active",
			Help:      "Connections currently being served",
		}),
	}
}

func (m *PrometheusMetrics) IncrRequest(command string, outcome Outcome, valid bool) {
	m.requests.WithLabelValues(command, outcome.String(), strconv.FormatBool(valid)).Inc()
}

func (m *PrometheusMetrics) ObserveRequestLatency(command string, latency time.Duration) {
	m.latency.WithLabelValues(command).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) IncrStoreError(command string) {
	m.storeErrors.WithLabelValues(command).Inc()
}

func (m *PrometheusMetrics) IncrRejectedConnection(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) SetActiveConnections(count int) {
	m.activeConnections.Set(float64(count))
}

// Reset clears every vector and zeroes the gauge.
func (m *PrometheusMetrics) Reset() {
	m.requests.Reset()
	m.latency.Reset()
	m.storeErrors.Reset()
	m.rejected.Reset()
	m.activeConnections.Set(0)
}
