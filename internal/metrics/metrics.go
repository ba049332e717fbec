// Package metrics exposes rate limit decisions as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts rate limit decisions by outcome. It implements ratelimit.Recorder.
type Recorder struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
}

// NewRecorder creates a recorder registered on its own registry.
func NewRecorder(backend string) *Recorder {
	registry := prometheus.NewRegistry()

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "ratelimit",
		Name:        "decisions_total",
		Help:        "Rate limit decisions by outcome.",
		ConstLabels: prometheus.Labels{"store": backend},
	}, []string{"outcome"})

	registry.MustRegister(decisions)

	return &Recorder{registry: registry, decisions: decisions}
}

// Observe counts one decision.
func (r *Recorder) Observe(outcome string) {
	r.decisions.WithLabelValues(outcome).Inc()
}

// Decisions returns the counter vector, mainly for tests.
func (r *Recorder) Decisions() *prometheus.CounterVec {
	return r.decisions
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
