// Package metrics exposes Prometheus instrumentation for record parsing and
// validation jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RMahshie/emav/pkg/models"
)

const namespace = "emav"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so library callers and tests can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	ParsesTotal        *prometheus.CounterVec
	PaddedValues       prometheus.Counter
	SafetyBoundHits    prometheus.Counter
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	FRAC               prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ParsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parser",
				Name:      "records_total",
				Help:      "Records parsed, by tier (resilient, fallback) and outcome (ok, error)",
			},
			[]string{"tier", "outcome"},
		),

		PaddedValues: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parser",
				Name:      "padded_values_total",
				Help:      "Zero values appended to short payloads",
			},
		),

		SafetyBoundHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parser",
				Name:      "safety_bound_hits_total",
				Help:      "Payloads cut short by the line safety bound",
			},
		),

		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "jobs_total",
				Help:      "Validation jobs by final status",
			},
			[]string{"status"},
		),

		ValidationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "duration_seconds",
				Help:      "Validation job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		FRAC: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "frac",
				Help:      "Distribution of computed FRAC values",
				Buckets:   []float64{0.5, 0.7, 0.85, 0.95, 0.99, 1},
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ParsesTotal,
		m.PaddedValues,
		m.SafetyBoundHits,
		m.ValidationsTotal,
		m.ValidationDuration,
		m.FRAC,
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveParse records the outcome of one parse. diag is ignored when err
// is non-nil.
func (m *Metrics) ObserveParse(diag models.ParseDiagnostics, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ParsesTotal.WithLabelValues("none", "error").Inc()
		return
	}
	m.ParsesTotal.WithLabelValues(string(diag.Tier), "ok").Inc()
	if diag.PaddedValues > 0 {
		m.PaddedValues.Add(float64(diag.PaddedValues))
	}
	if diag.SafetyBoundHit {
		m.SafetyBoundHits.Inc()
	}
}

// ObserveValidation records a finished validation job.
func (m *Metrics) ObserveValidation(status string, elapsed time.Duration, report *models.ValidationReport) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(status).Inc()
	m.ValidationDuration.Observe(elapsed.Seconds())
	if report != nil && report.FRAC.Available {
		m.FRAC.Observe(report.FRAC.Value)
	}
}
