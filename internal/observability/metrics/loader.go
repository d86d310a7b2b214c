package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoaderMetrics tracks the per-session dataset caches
type LoaderMetrics struct {
	lookups       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	invalidations *prometheus.CounterVec
	sessions      prometheus.Gauge

	collectors []prometheus.Collector
}

// NewLoaderMetrics creates and registers loader metrics
func NewLoaderMetrics(registry prometheus.Registerer) (*LoaderMetrics, error) {
	m := &LoaderMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdobs_loader_lookups_total",
				Help: "Dataset lookups by cache result (hit, miss, shared)",
			},
			[]string{"dataset", "result"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "birdobs_loader_fetch_duration_seconds",
				Help:    "Time to load a dataset from the store on a cache miss",
				Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
			},
			[]string{"dataset"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birdobs_loader_invalidations_total",
				Help: "Explicit cache invalidations",
			},
			[]string{"dataset"},
		),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birdobs_sessions_active",
			Help: "Sessions currently holding a dataset cache",
		}),
	}
	m.collectors = []prometheus.Collector{m.lookups, m.fetchDuration, m.invalidations, m.sessions}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *LoaderMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *LoaderMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordLookup records a cache hit, miss or shared in-flight fetch
func (m *LoaderMetrics) RecordLookup(dataset, result string) {
	m.lookups.WithLabelValues(dataset, result).Inc()
}

// RecordFetchDuration records the store fetch time on a miss
func (m *LoaderMetrics) RecordFetchDuration(dataset string, seconds float64) {
	m.fetchDuration.WithLabelValues(dataset).Observe(seconds)
}

// RecordInvalidation records an explicit invalidation; dataset "*" means a full flush
func (m *LoaderMetrics) RecordInvalidation(dataset string) {
	m.invalidations.WithLabelValues(dataset).Inc()
}

// SetActiveSessions sets the session gauge
func (m *LoaderMetrics) SetActiveSessions(n int) {
	m.sessions.Set(float64(n))
}
