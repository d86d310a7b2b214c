// Package observability wires the Prometheus registry shared by birdobs components.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tphakala/birdobs/internal/observability/metrics"
)

// Metrics holds all component metrics on a private registry
type Metrics struct {
	registry  *prometheus.Registry
	Datastore *metrics.DatastoreMetrics
	Loader    *metrics.LoaderMetrics
	Views     *metrics.ViewMetrics
	HTTP      *metrics.HTTPMetrics
}

// NewMetrics creates a registry and registers every component's collectors
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore metrics: %w", err)
	}

	loaderMetrics, err := metrics.NewLoaderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader metrics: %w", err)
	}

	viewMetrics, err := metrics.NewViewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create view metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	getLogger().Debug("metrics registry initialised")

	return &Metrics{
		registry:  registry,
		Datastore: datastoreMetrics,
		Loader:    loaderMetrics,
		Views:     viewMetrics,
		HTTP:      httpMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus exposition handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
