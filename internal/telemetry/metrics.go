package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus counters/gauges/histograms a component
// registers. Each component (registry, gateway, runtime) builds its own set
// of instruments against a private registry returned by NewMetrics, then
// exposes Handler() on a /metrics route — ambient observability the spec's
// Non-goals never excluded.
type Metrics struct {
	registry *prometheus.Registry
	factory  promauto.Factory
}

// NewMetrics creates a private registry (never the global
// prometheus.DefaultRegisterer, so multiple components in one test binary
// never collide) plus an instrument factory bound to it. The namespace
// argument is not applied to instrument names: each instrument is registered
// under exactly the name its caller passes.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	return &Metrics{
		registry: reg,
		factory:  promauto.With(reg),
	}
}

// Counter registers and returns a new counter named name.
func (m *Metrics) Counter(name, help string, labels ...string) *prometheus.CounterVec {
	return m.factory.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// Gauge registers and returns a new gauge named name.
func (m *Metrics) Gauge(name, help string, labels ...string) *prometheus.GaugeVec {
	return m.factory.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
}

// Histogram registers and returns a new histogram named name.
func (m *Metrics) Histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return m.factory.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
}

// Handler returns the /metrics HTTP handler for this component's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
