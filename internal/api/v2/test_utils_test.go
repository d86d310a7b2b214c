package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/observability"
	"github.com/tphakala/birdobs/internal/table"
	"github.com/tphakala/birdobs/internal/testutil"
)

// MockDataStore implements datastore.Interface for handler tests
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) FetchAll(ctx context.Context, dataset string) (*table.Table, error) {
	args := m.Called(ctx, dataset)
	if t := args.Get(0); t != nil {
		return t.(*table.Table), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataStore) ImportObservations(ctx context.Context, dataset string, obs []datastore.Observation) error {
	args := m.Called(ctx, dataset, obs)
	return args.Error(0)
}

func (m *MockDataStore) Datasets() []string {
	return []string{"Forest", "Grassland"}
}

func (m *MockDataStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ datastore.Interface = (*MockDataStore)(nil)

func forestTable() *table.Table {
	return table.MustNew(
		[]string{"Common_Name", "Date", "Plot_Name", "Temperature", "Humidity", "Location_Type"},
		[][]any{
			{"Robin", "2018-01-10", "P1", 10.0, 40.0, "Forest"},
			{"Robin", "2018-05-14", "P1", 20.0, 50.0, "Forest"},
			{"Wren", "2018-05-20", "P2", 22.0, 55.0, "Forest"},
			{"Jay", "2018-07-01", "P2", 28.0, 70.0, "Forest"},
		},
	)
}

func grasslandTable() *table.Table {
	return table.MustNew(
		[]string{"Common_Name", "Date", "Temperature", "Humidity", "Location_Type"},
		[][]any{
			{"Robin", "2018-05-01", 15.0, 45.0, "Grassland"},
			{"Sparrow", "2018-06-01", 18.0, 30.0, "Grassland"},
		},
	)
}

func testSettings() *conf.Settings {
	settings := conf.Defaults()
	settings.Sessions.CleanupInterval = 0
	return settings
}

// setupTestEnvironment creates a controller with registered routes over a mock store
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	e := echo.New()
	mockDS := new(MockDataStore)

	opts = append([]Option{WithLogger(testutil.QuietLogger())}, opts...)
	controller, err := New(e, mockDS, testSettings(), opts...)
	require.NoError(t, err)
	t.Cleanup(controller.Shutdown)

	return e, mockDS, controller
}

func setupMetricsEnvironment(t *testing.T) (*echo.Echo, *MockDataStore, *observability.Metrics) {
	t.Helper()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	e, mockDS, _ := setupTestEnvironment(t, WithMetrics(m))
	return e, mockDS, m
}

// doRequest serves one request through the full echo stack
func doRequest(e *echo.Echo, method, target, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
