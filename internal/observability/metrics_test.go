package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/observability/metrics"
)

func TestNewMetricsRegistersAll(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m.Datastore)
	require.NotNil(t, m.Loader)
	require.NotNil(t, m.Views)
	require.NotNil(t, m.HTTP)

	// Independent registries must not collide
	_, err = NewMetrics()
	require.NoError(t, err)
}

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Datastore.RecordOperation(metrics.OpFetchAll, "forest", metrics.StatusSuccess, 0.02)
	m.Loader.RecordLookup("forest", metrics.CacheHit)
	m.Views.RecordComputation("temporal", metrics.StatusSuccess, 0.001)
	m.HTTP.RecordRequest(http.MethodGet, "/api/v2/views/:view", http.StatusOK, 0.004)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `birdobs_datastore_operations_total{dataset="forest",operation="fetch_all",status="success"} 1`)
	assert.Contains(t, text, `birdobs_loader_lookups_total{dataset="forest",result="hit"} 1`)
	assert.Contains(t, text, `birdobs_view_computations_total{status="success",view="temporal"} 1`)
	assert.Contains(t, text, `birdobs_http_requests_total{code="200",method="GET",route="/api/v2/views/:view"} 1`)
	assert.Contains(t, text, "go_goroutines")
}

func TestConcurrentRecording(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			for range 50 {
				m.Views.RecordDropped("Temperature", "non_numeric", 1)
				m.Loader.SetActiveSessions(3)
			}
		})
	}
	wg.Wait()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "birdobs_view_dropped_values_total" {
			require.Len(t, f.GetMetric(), 1)
			assert.InDelta(t, 1000.0, f.GetMetric()[0].GetCounter().GetValue(), 0)
			return
		}
	}
	t.Fatal("dropped values metric not gathered")
}
