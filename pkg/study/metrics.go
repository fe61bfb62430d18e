package study

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for a study.
type Metrics struct {
	samples        *prometheus.CounterVec
	compileErrors  *prometheus.CounterVec
	duplicates     *prometheus.CounterVec
	sampleDuration *prometheus.HistogramVec
}

// NewMetrics registers the study collectors with reg. A nil reg uses a
// private registry so several studies can coexist.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		samples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sspace_samples_total",
				Help: "Total number of configurations sampled",
			},
			[]string{"backend"},
		),

		compileErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sspace_compile_errors_total",
				Help: "Total number of spaces a backend refused to compile",
			},
			[]string{"backend"},
		),

		duplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sspace_duplicate_trials_total",
				Help: "Total number of suggested trials whose identity was already recorded",
			},
			[]string{"backend"},
		),

		sampleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sspace_sample_duration_seconds",
				Help:    "Duration of sampling calls in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to 2.6s
			},
			[]string{"backend"},
		),
	}
}

// RecordSamples records n sampled configurations and how long it took.
func (m *Metrics) RecordSamples(backend string, n int, seconds float64) {
	m.samples.WithLabelValues(backend).Add(float64(n))
	m.sampleDuration.WithLabelValues(backend).Observe(seconds)
}

// RecordCompileError records a space rejected by backend.
func (m *Metrics) RecordCompileError(backend string) {
	m.compileErrors.WithLabelValues(backend).Inc()
}

// RecordDuplicate records a suggested trial whose identity was seen before.
func (m *Metrics) RecordDuplicate(backend string) {
	m.duplicates.WithLabelValues(backend).Inc()
}
