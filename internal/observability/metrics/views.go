package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ViewMetrics tracks insight view computations
type ViewMetrics struct {
	computations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	dropped      *prometheus.CounterVec
	unavailable  *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewViewMetrics creates and registers view metrics
func NewViewMetrics(registry prometheus.Registerer) (*ViewMetrics, error) {
	m := &ViewMetrics{
		computations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdobs_view_computations_total",
				Help: "View computations by view and status",
			},
			[]string{"view", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "birdobs_view_duration_seconds",
				Help:    "Time to derive the summary tables of a view",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms/10, BucketFactor2, BucketCount15), // 0.1ms to ~1.6s
			},
			[]string{"view"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdobs_view_dropped_values_total",
				Help: "Values discarded during derivation by column and reason",
			},
			[]string{"column", "reason"},
		),
		unavailable: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdobs_view_unavailable_tables_total",
				Help: "Summary tables skipped because required columns were absent",
			},
			[]string{"view"},
		),
	}
	m.collectors = []prometheus.Collector{m.computations, m.duration, m.dropped, m.unavailable}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *ViewMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ViewMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordComputation records one view computation
func (m *ViewMetrics) RecordComputation(view, status string, seconds float64) {
	m.computations.WithLabelValues(view, status).Inc()
	m.duration.WithLabelValues(view).Observe(seconds)
}

// RecordDropped adds discarded values
func (m *ViewMetrics) RecordDropped(column, reason string, n int) {
	m.dropped.WithLabelValues(column, reason).Add(float64(n))
}

// RecordUnavailable counts tables replaced by a data-unavailable notice
func (m *ViewMetrics) RecordUnavailable(view string, n int) {
	m.unavailable.WithLabelValues(view).Add(float64(n))
}
