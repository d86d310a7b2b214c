package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/errors"
)

type tableResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// viewResponse mirrors the JSON shape of views.Result
type viewResponse struct {
	View    string                               `json:"view"`
	Title   string                               `json:"title"`
	Tables  map[string]tableResponse             `json:"tables"`
	Notices []string                             `json:"notices"`
	Dropped map[string]map[string]map[string]int `json:"dropped"`
	Metrics map[string]any                       `json:"metrics"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("Ping", mock.Anything).Return(nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database_status"])
	assert.Equal(t, "dev", body["version"])
	assert.Empty(t, rec.Header().Get(HeaderSessionID), "health must not create sessions")
	mockDS.AssertExpectations(t)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t, WithVersion("1.2.3"))
	mockDS.On("Ping", mock.Anything).Return(errors.NewStd("connection refused")).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "disconnected", body["database_status"])
	assert.Equal(t, "connection refused", body["database_error"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestGetResourceInfo(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)

	rec := doRequest(e, http.MethodGet, "/api/v2/system/resources", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	info := decode[ResourceInfo](t, rec)
	assert.Positive(t, info.MemoryTotal)
	assert.Positive(t, info.Goroutines)
	assert.Positive(t, info.NumCPU)
	assert.Zero(t, info.ActiveSessions)
	assert.NotEmpty(t, info.GoVersion)
	mockDS.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything)
}

func TestGetDatasets(t *testing.T) {
	t.Parallel()

	e, _, _ := setupTestEnvironment(t)

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[DatasetsResponse](t, rec)
	assert.Equal(t, []string{"Forest", "Grassland", "compare"}, body.Datasets)
	assert.Equal(t, CompareDataset, body.Compare)
}

func TestGetSpeciesCreatesSession(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/forest/species", "")
	require.Equal(t, http.StatusOK, rec.Code)

	sid := rec.Header().Get(HeaderSessionID)
	_, err := uuid.Parse(sid)
	require.NoError(t, err, "session id %q", sid)

	body := decode[SpeciesResponse](t, rec)
	assert.Equal(t, []string{"Jay", "Robin", "Wren"}, body.Species)
	assert.Equal(t, 3, body.Count)
	mockDS.AssertExpectations(t)
}

func TestSessionCacheSharedAcrossRequests(t *testing.T) {
	t.Parallel()

	e, mockDS, c := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil)

	first := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/species", "")
	require.Equal(t, http.StatusOK, first.Code)
	sid := first.Header().Get(HeaderSessionID)

	second := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/views/temporal", sid)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, sid, second.Header().Get(HeaderSessionID))
	mockDS.AssertNumberOfCalls(t, "FetchAll", 1)

	// another session loads its own copy
	other := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/species", "")
	require.Equal(t, http.StatusOK, other.Code)
	assert.NotEqual(t, sid, other.Header().Get(HeaderSessionID))
	mockDS.AssertNumberOfCalls(t, "FetchAll", 2)
	assert.Equal(t, 2, c.Sessions.Count())
}

func TestInvalidateDataset(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil)

	first := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/species", "")
	require.Equal(t, http.StatusOK, first.Code)
	sid := first.Header().Get(HeaderSessionID)

	inv := doRequest(e, http.MethodPost, "/api/v2/datasets/forest/invalidate", sid)
	require.Equal(t, http.StatusOK, inv.Code)
	body := decode[InvalidateResponse](t, inv)
	assert.Equal(t, "Forest", body.Dataset)
	assert.Equal(t, sid, body.SessionID)
	assert.False(t, body.Cached)

	again := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/species", sid)
	require.Equal(t, http.StatusOK, again.Code)
	mockDS.AssertNumberOfCalls(t, "FetchAll", 2)
}

func TestUnknownDatasetNeverReachesStore(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)

	for _, target := range []string{
		"/api/v2/datasets/Wetland/species",
		"/api/v2/datasets/Wetland/overview",
		"/api/v2/datasets/Wetland/views",
		"/api/v2/datasets/Wetland/views/temporal",
	} {
		rec := doRequest(e, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)

		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, http.StatusNotFound, body.Code)
		assert.Len(t, body.CorrelationID, 8)
		assert.Contains(t, body.Error, "Wetland")
	}

	inv := doRequest(e, http.MethodPost, "/api/v2/datasets/Wetland/invalidate", "")
	assert.Equal(t, http.StatusNotFound, inv.Code)

	mockDS.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything)
}

func TestFetchErrorMapsToStatus(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	dbErr := errors.Newf("connection lost").
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(nil, dbErr)

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/overview", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Failed to load dataset", body.Message)
	assert.Contains(t, body.Error, "connection lost")
}

func TestGetOverviewWithSpeciesFilter(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/overview?species=Robin", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[viewResponse](t, rec)
	assert.Equal(t, "overview", body.View)
	require.NotNil(t, body.Metrics)
	assert.InDelta(t, 2, body.Metrics["total_observations"], 0)
	assert.InDelta(t, 1, body.Metrics["unique_species"], 0)
	assert.InDelta(t, 15, body.Metrics["avg_temperature"], 1e-9)
	assert.InDelta(t, 1, body.Metrics["unique_locations"], 0)
}

func TestGetOverviewUnmatchedSpeciesIsEmpty(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/overview?species=Dodo", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[viewResponse](t, rec)
	assert.InDelta(t, 0, body.Metrics["total_observations"], 0)
	assert.Nil(t, body.Metrics["avg_temperature"])
}

func TestGetView(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/views/temporal", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[viewResponse](t, rec)
	assert.Equal(t, "temporal", body.View)
	assert.Contains(t, body.Tables, "year_month")
	assert.Contains(t, body.Tables, "seasons")
}

func TestGetViewMissingColumnsBecomesNotice(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/views/observers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[viewResponse](t, rec)
	assert.Empty(t, body.Tables)
	require.NotEmpty(t, body.Notices)
	assert.Contains(t, body.Notices[0], "data unavailable")
}

func TestGetUnknownView(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/views/astrology", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	mockDS.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything)
}

func TestGetViewAvailability(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/views", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[AvailabilityResponse](t, rec)
	available := map[string]bool{}
	for _, v := range body.Views {
		available[v.ID] = v.Available
	}
	assert.True(t, available["temporal"])
	assert.True(t, available["spatial"])
	assert.False(t, available["observers"])
	assert.False(t, available["conservation"])
}

func TestListViews(t *testing.T) {
	t.Parallel()

	e, _, _ := setupTestEnvironment(t)

	rec := doRequest(e, http.MethodGet, "/api/v2/views", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[[]ViewInfo](t, rec)
	require.Len(t, body, 7)
	assert.Equal(t, "temporal", body[0].ID)
	assert.Equal(t, []string{"year_month", "seasons"}, body[0].Tables)
}

func TestGetCompare(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupTestEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()
	mockDS.On("FetchAll", mock.Anything, "Grassland").Return(grasslandTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/compare", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sid := rec.Header().Get(HeaderSessionID)

	body := decode[viewResponse](t, rec)
	assert.Equal(t, "compare", body.View)
	require.Contains(t, body.Tables, "ecosystem_counts")
	assert.Len(t, body.Tables["ecosystem_counts"].Rows, 2)

	// the compare pseudo dataset is served from the same session cache
	species := doRequest(e, http.MethodGet, "/api/v2/datasets/compare/species", sid)
	require.Equal(t, http.StatusOK, species.Code)
	assert.Equal(t, []string{"Jay", "Robin", "Sparrow", "Wren"}, decode[SpeciesResponse](t, species).Species)

	overview := doRequest(e, http.MethodGet, "/api/v2/datasets/compare/overview?species=Robin", sid)
	require.Equal(t, http.StatusOK, overview.Code)
	assert.Equal(t, "compare", decode[viewResponse](t, overview).View)

	mockDS.AssertExpectations(t)
}

func TestParseSpecies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"none", "", nil},
		{"single", "species=Robin", []string{"Robin"}},
		{"comma separated", "species=Robin,%20Wren", []string{"Robin", "Wren"}},
		{"repeated", "species=Robin&species=Jay", []string{"Robin", "Jay"}},
		{"blank and duplicate", "species=Robin,,Robin&species=%20", []string{"Robin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, http.NoBody)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, parseSpecies(ctx))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	withErr := NewErrorResponse(errors.NewStd("boom"), "Failed", http.StatusBadRequest)
	assert.Equal(t, "boom", withErr.Error)
	assert.Equal(t, "Failed", withErr.Message)
	assert.Len(t, withErr.CorrelationID, 8)

	withoutErr := NewErrorResponse(nil, "Failed", http.StatusBadRequest)
	assert.Equal(t, "Failed", withoutErr.Error)
	assert.NotEqual(t, withErr.CorrelationID, withoutErr.CorrelationID)
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	build := func(c errors.ErrorCategory) error {
		return errors.Newf("x").Component("test").Category(c).Build()
	}

	assert.Equal(t, http.StatusNotFound, statusForError(build(errors.CategoryNotFound)))
	assert.Equal(t, http.StatusBadRequest, statusForError(build(errors.CategoryValidation)))
	assert.Equal(t, http.StatusGatewayTimeout, statusForError(build(errors.CategoryTimeout)))
	assert.Equal(t, http.StatusServiceUnavailable, statusForError(build(errors.CategoryDatabase)))
	assert.Equal(t, http.StatusInternalServerError, statusForError(errors.NewStd("plain")))
}

func TestMetricsEndpointAndRequestMetrics(t *testing.T) {
	t.Parallel()

	e, mockDS, _ := setupMetricsEnvironment(t)
	mockDS.On("FetchAll", mock.Anything, "Forest").Return(forestTable(), nil).Once()

	rec := doRequest(e, http.MethodGet, "/api/v2/datasets/Forest/species", "")
	require.Equal(t, http.StatusOK, rec.Code)

	metricsRec := doRequest(e, http.MethodGet, "/api/v2/metrics", "")
	require.Equal(t, http.StatusOK, metricsRec.Code)
	body := metricsRec.Body.String()
	assert.True(t, strings.Contains(body, `birdobs_http_requests_total{code="200",method="GET",route="/api/v2/datasets/:dataset/species"} 1`), body)
	assert.Contains(t, body, "birdobs_sessions_active 1")
	assert.Contains(t, body, "birdobs_loader_lookups_total")
}
