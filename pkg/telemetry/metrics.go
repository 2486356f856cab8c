package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for check runs. It registers on a
// private registry so tests and embedded use never collide with the
// default global one. Primarily useful in watch mode, where the process
// is long-lived and runs repeat.
type Metrics struct {
	registry *prometheus.Registry

	documentsLoaded *prometheus.CounterVec
	rulesEvaluated  prometheus.Counter
	findings        *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	reloads         prometheus.Counter
}

// NewMetrics creates the metrics collector under the given namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		documentsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_loaded_total",
				Help:      "Total number of documents loaded",
			},
			[]string{"format"},
		),
		rulesEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_evaluated_total",
				Help:      "Total number of rules evaluated",
			},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Total findings by outcome and severity",
			},
			[]string{"outcome", "severity"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of check runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Total number of watch-triggered re-evaluations",
			},
		),
	}

	registry.MustRegister(
		m.documentsLoaded,
		m.rulesEvaluated,
		m.findings,
		m.runDuration,
		m.reloads,
	)

	return m
}

// DocumentLoaded records one loaded document of the given format.
func (m *Metrics) DocumentLoaded(format string) {
	m.documentsLoaded.WithLabelValues(format).Inc()
}

// RulesEvaluated records n evaluated rules.
func (m *Metrics) RulesEvaluated(n int) {
	m.rulesEvaluated.Add(float64(n))
}

// Finding records one finding by outcome and severity.
func (m *Metrics) Finding(outcome, severity string) {
	m.findings.WithLabelValues(outcome, severity).Inc()
}

// RunCompleted records a run's duration under a status label ("pass" or
// "fail").
func (m *Metrics) RunCompleted(status string, seconds float64) {
	m.runDuration.WithLabelValues(status).Observe(seconds)
}

// Reload records one watch-triggered re-evaluation.
func (m *Metrics) Reload() {
	m.reloads.Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
