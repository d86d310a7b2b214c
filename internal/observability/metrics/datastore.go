package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for observation store operations
type DatastoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	rowsFetched       *prometheus.HistogramVec
	rowsImported      *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers datastore metrics
func NewDatastoreMetrics(registry prometheus.Registerer) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdobs_datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "dataset", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birdobs_datastore_operation_duration_seconds",
			Help:    "Time taken by datastore operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"operation", "dataset"},
	)

	m.operationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdobs_datastore_operation_errors_total",
			Help: "Total number of failed datastore operations by error category",
		},
		[]string{"operation", "dataset", "category"},
	)

	m.rowsFetched = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birdobs_datastore_rows_fetched",
			Help:    "Rows returned by a full dataset fetch",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor10, BucketCount7), // 1 to 1M
		},
		[]string{"dataset"},
	)

	m.rowsImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdobs_datastore_rows_imported_total",
			Help: "Observations written by imports",
		},
		[]string{"dataset"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrors,
		m.rowsFetched,
		m.rowsImported,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records one completed operation and its duration in seconds
func (m *DatastoreMetrics) RecordOperation(operation, dataset, status string, seconds float64) {
	m.operationsTotal.WithLabelValues(operation, dataset, status).Inc()
	m.operationDuration.WithLabelValues(operation, dataset).Observe(seconds)
}

// RecordOperationError records a failed operation by error category
func (m *DatastoreMetrics) RecordOperationError(operation, dataset, category string) {
	m.operationErrors.WithLabelValues(operation, dataset, category).Inc()
}

// RecordRowsFetched records the size of a fetched dataset
func (m *DatastoreMetrics) RecordRowsFetched(dataset string, rows int) {
	m.rowsFetched.WithLabelValues(dataset).Observe(float64(rows))
}

// RecordRowsImported adds imported observations
func (m *DatastoreMetrics) RecordRowsImported(dataset string, rows int) {
	m.rowsImported.WithLabelValues(dataset).Add(float64(rows))
}
