// Package metrics exposes the engine's derived counters in Prometheus
// exposition format.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/guard"
)

// Metrics holds the engine's Prometheus collectors. Construct once at
// startup and pass by reference; no package-level registry.
type Metrics struct {
	registry *prometheus.Registry

	actionsTotal       *prometheus.CounterVec
	executionsTotal    *prometheus.CounterVec
	rateLimitedTotal   prometheus.Counter
	breakerTransitions *prometheus.CounterVec
	executionSeconds   prometheus.Histogram
}

// New creates and registers all engine collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_actions_total",
			Help: "Actions processed per tier and outcome.",
		}, []string{"tier", "outcome"}),
		executionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_executions_total",
			Help: "Execution attempts per resolution mode.",
		}, []string{"mode"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aegis_rate_limited_total",
			Help: "Admissions rejected by the sliding-window rate limiter.",
		}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aegis_breaker_transitions_total",
			Help: "Circuit breaker state transitions by target state.",
		}, []string{"state"}),
		executionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aegis_execution_seconds",
			Help:    "Wall-clock duration of spawned commands.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~80s
		}),
	}

	registry.MustRegister(
		m.actionsTotal,
		m.executionsTotal,
		m.rateLimitedTotal,
		m.breakerTransitions,
		m.executionSeconds,
	)

	return m
}

// Handler serves the exposition format for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAction(tier domain.Tier, outcome string) {
	m.actionsTotal.WithLabelValues(strconv.Itoa(int(tier)), outcome).Inc()
}

func (m *Metrics) ObserveExecution(mode domain.ExecutionMode, seconds float64) {
	m.executionsTotal.WithLabelValues(string(mode)).Inc()
	if mode == domain.ModeLive {
		m.executionSeconds.Observe(seconds)
	}
}

func (m *Metrics) ObserveRateLimited() {
	m.rateLimitedTotal.Inc()
}

func (m *Metrics) ObserveBreakerTransition(to guard.BreakerState) {
	m.breakerTransitions.WithLabelValues(string(to)).Inc()
}
