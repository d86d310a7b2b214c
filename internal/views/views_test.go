package views

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
	"github.com/tphakala/birdobs/internal/testutil"
)

var forestColumns = []string{
	"Common_Name", "Date", "Plot_Name", "Temperature", "Humidity", "Distance",
	"ID_Method", "Interval_Length", "Flyover_Observed", "Observer", "Visit",
	"PIF_Watchlist_Status", "Regional_Stewardship_Status", "AOU_Code", "Location_Type",
}

func forest() *table.Table {
	return table.MustNew(forestColumns, [][]any{
		{"Robin", "2018-01-10", "P1", 10.0, 40.0, "<= 50 Meters", "Singing", "0-2.5 min", "FALSE", "Alice", "1", "FALSE", "FALSE", "AMRO", "Forest"},
		{"Robin", "2018-05-14", "P1", 20.0, 50.0, "<= 50 Meters", "Calling", "0-2.5 min", "FALSE", "Bob", "2", "FALSE", "FALSE", "AMRO", "Forest"},
		{"Wren", "2018-05-20", "P2", 22.0, "n/a", "50 - 100 Meters", "Visualization", "2.5 - 5 min", "FALSE", "Alice", "1", "FALSE", "FALSE", "WIWR", "Forest"},
		{"Jay", "2018-07-01", "P2", 28.0, 70.0, "<= 50 Meters", "Singing", "0-2.5 min", "TRUE", "Bob", "2", "FALSE", "FALSE", "BLJA", "Forest"},
		{"Wren", "not-a-date", "P3", nil, 60.0, "<= 50 Meters", "Singing", "5 - 7.5 min", "FALSE", "Alice", "1", "FALSE", "FALSE", "WIWR", "Forest"},
	})
}

func grassland() *table.Table {
	return table.MustNew(
		[]string{"Common_Name", "Date", "Temperature", "Humidity", "Location_Type"},
		[][]any{
			{"Robin", "2018-05-01", 15.0, 45.0, "Grassland"},
			{"Sparrow", "2018-06-01", "hot", 30.0, "Grassland"},
		},
	)
}

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(testutil.QuietLogger())}, opts...)
	return NewEngine(conf.ViewSettings{TopPlots: 2, TopSpecies: 20, HistogramBins: 5}, opts...)
}

func column(t *testing.T, tbl *table.Table, name string) []any {
	t.Helper()
	values, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	return values
}

func sumCounts(t *testing.T, tbl *table.Table) int64 {
	t.Helper()
	var total int64
	for _, v := range column(t, tbl, pipeline.ColCount) {
		total += v.(int64)
	}
	return total
}

func TestListAndLookup(t *testing.T) {
	t.Parallel()

	var ids []string
	for _, d := range List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{Temporal, Spatial, Species, Environment, Behavior, Observers, Conservation}, ids)

	d, ok := Lookup(Conservation)
	require.True(t, ok)
	assert.Equal(t, "Conservation Insights", d.Title)

	_, ok = Lookup("weather")
	assert.False(t, ok)
}

func TestUnknownView(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine().Compute("weather", forest(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestTemporalView(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compute(Temporal, forest(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Temporal Analysis", res.Title)
	assert.Equal(t, []string{"year_month", "seasons"}, res.TableNames())
	assert.Empty(t, res.Notices)

	ym := res.Tables["year_month"]
	assert.Equal(t, []any{int64(1), int64(5), int64(7)}, column(t, ym, pipeline.ColMonth))
	assert.Equal(t, int64(4), sumCounts(t, ym))

	seasons := res.Tables["seasons"]
	assert.Equal(t, []any{"Winter", "Spring", "Summer"}, column(t, seasons, pipeline.ColSeason))
	assert.Equal(t, []any{int64(1), int64(2), int64(1)}, column(t, seasons, pipeline.ColCount))

	// the unparseable date is reported against each table that excluded it
	assert.Equal(t, 1, res.Dropped["year_month"].Count("Date", pipeline.ReasonUnparseableDate))
	assert.Equal(t, 1, res.Dropped["seasons"].Count("Date", pipeline.ReasonUnparseableDate))
}

func TestActivityCountsNamedSightingsOnly(t *testing.T) {
	t.Parallel()

	data := table.MustNew([]string{"Common_Name", "Date"}, [][]any{
		{"Robin", "2018-05-14"},
		{"", "2018-05-14"},
		{nil, "2018-07-01"},
		{"Wren", "2018-07-01"},
		{"Jay", "2018-07-02"},
	})

	res, err := newTestEngine().Compute(Temporal, data, nil)
	require.NoError(t, err)
	seasons := res.Tables["seasons"]
	assert.Equal(t, []any{"Spring", "Summer"}, column(t, seasons, pipeline.ColSeason))
	assert.Equal(t, []any{int64(1), int64(2)}, column(t, seasons, pipeline.ColCount))
	assert.Equal(t, 2, res.Dropped["seasons"].Count("Common_Name", pipeline.ReasonMissing))

	overview, err := newTestEngine().Overview(data, nil)
	require.NoError(t, err)
	series := overview.Tables["time_series"]
	assert.Equal(t, []any{"2018-05-14", "2018-07-01", "2018-07-02"}, column(t, series, "Date"))
	assert.Equal(t, []any{int64(1), int64(1), int64(1)}, column(t, series, pipeline.ColCount))
	assert.Equal(t, 2, overview.Dropped["time_series"].Count("Common_Name", pipeline.ReasonMissing))
}

func TestSpatialViewHonoursTopPlots(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compute(Spatial, forest(), nil)
	require.NoError(t, err)

	top := res.Tables["top_plots"]
	assert.Equal(t, []any{"P2", "P1"}, column(t, top, "Plot_Name"))
	assert.Equal(t, []any{int64(2), int64(1)}, column(t, top, "Unique_Common_Name"))
}

func TestSpeciesView(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compute(Species, forest(), nil)
	require.NoError(t, err)

	methods := res.Tables["id_methods"]
	assert.Equal(t, "Singing", methods.Value(0, "ID_Method"))
	assert.Equal(t, int64(3), methods.Value(0, pipeline.ColCount))
	assert.Equal(t, int64(5), sumCounts(t, methods))

	intervals := res.Tables["interval_lengths"]
	assert.Equal(t, "0-2.5 min", intervals.Value(0, "Interval_Length"))
}

func TestEnvironmentView(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compute(Environment, forest(), nil)
	require.NoError(t, err)

	corr := res.Tables["correlation"]
	assert.Equal(t, []string{pipeline.ColColumn, "Temperature", "Humidity", "Distance"}, corr.Columns())
	assert.InDelta(t, 1.0, corr.Value(0, "Temperature").(float64), 1e-9)
	assert.True(t, math.IsNaN(corr.Value(2, "Distance").(float64)), "distance bands are not numeric")
	assert.Equal(t, 5, res.Dropped["correlation"].Count("Distance", pipeline.ReasonNonNumeric))
	assert.Equal(t, 1, res.Dropped["correlation"].Count("Humidity", pipeline.ReasonNonNumeric))

	temps := res.Tables["temperature_species"]
	assert.Equal(t, []string{"Temperature", "Bird_Count"}, temps.Columns())
	assert.Equal(t, []any{10.0, 20.0, 22.0, 28.0}, column(t, temps, "Temperature"))

	// NaN cells encode as null
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")
}

func TestBehaviorAndObserverViews(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	res, err := e.Compute(Behavior, forest(), nil)
	require.NoError(t, err)
	flyover := res.Tables["flyover"]
	assert.Equal(t, []any{"FALSE", "TRUE"}, column(t, flyover, "Flyover_Observed"))
	assert.Equal(t, []any{int64(4), int64(1)}, column(t, flyover, pipeline.ColCount))

	res, err = e.Compute(Observers, forest(), nil)
	require.NoError(t, err)
	observers := res.Tables["observers"]
	assert.Equal(t, []string{"Observer", "Unique_Species"}, observers.Columns())
	assert.Equal(t, []any{int64(2), int64(2)}, column(t, observers, "Unique_Species"))
	visits := res.Tables["visits"]
	assert.Equal(t, []any{"1", "2"}, column(t, visits, "Visit"))
}

func TestConservationView(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	res, err := e.Compute(Conservation, forest(), nil)
	require.NoError(t, err)

	watch := res.Tables["watchlist"]
	require.Equal(t, 1, watch.Len())
	assert.Equal(t, int64(3), watch.Value(0, "Unique_Species"))

	// alphabetic codes fall back to value counts
	aou := res.Tables["aou_histogram"]
	assert.Equal(t, []string{"AOU_Code", pipeline.ColCount}, aou.Columns())
	assert.Equal(t, int64(5), sumCounts(t, aou))
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0], "not numeric")

	numeric := table.MustNew([]string{"AOU_Code"}, [][]any{
		{int64(1)}, {int64(2)}, {int64(3)}, {int64(4)}, {int64(5)},
		{int64(6)}, {int64(7)}, {int64(8)}, {int64(9)}, {"x"}, {nil},
	})
	res, err = e.Compute(Conservation, numeric, nil)
	require.NoError(t, err)
	hist := res.Tables["aou_histogram"]
	assert.Equal(t, 5, hist.Len())
	assert.Equal(t, int64(9), sumCounts(t, hist))
	assert.Equal(t, 1, res.Dropped["aou_histogram"].Count("AOU_Code", pipeline.ReasonNonNumeric))
	// watchlist columns are absent here
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0], "data unavailable")
}

func TestMissingColumnsProduceNotices(t *testing.T) {
	t.Parallel()

	minimal := table.MustNew([]string{"Common_Name", "Date"}, [][]any{{"Robin", "2018-05-01"}})
	e := newTestEngine()

	res, err := e.Compute(Behavior, minimal, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Tables)
	assert.Equal(t, []string{"Frequency of Flyover Observations: data unavailable (missing columns: Flyover_Observed)"}, res.Notices)

	res, err = e.Compute(Environment, minimal, nil)
	require.NoError(t, err)
	require.Len(t, res.Notices, 2)
	assert.Contains(t, res.Notices[0], "Temperature, Humidity, Distance")
}

func TestEmptyFilterResultIsNotAnError(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	for _, d := range List() {
		res, err := e.Compute(d.ID, forest(), []string{"Dodo"})
		require.NoError(t, err, d.ID)
		for name, tbl := range res.Tables {
			if name == "correlation" {
				continue
			}
			assert.Zero(t, tbl.Len(), "%s/%s", d.ID, name)
		}
	}
}

func TestSpeciesFilter(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compute(Species, forest(), []string{"Wren"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sumCounts(t, res.Tables["id_methods"]))

	noNames := table.MustNew([]string{"Date"}, [][]any{{"2018-05-01"}})
	_, err = newTestEngine().Compute(Temporal, noNames, []string{"Wren"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingColumn))
}

func TestOverview(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Overview(forest(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Metrics)
	assert.Equal(t, 5, res.Metrics.TotalObservations)
	assert.Equal(t, 3, res.Metrics.UniqueSpecies)
	assert.Equal(t, 3, res.Metrics.UniqueLocations)
	assert.InDelta(t, 20.0, res.Metrics.AvgTemperature, 1e-9)

	series := res.Tables["time_series"]
	assert.Equal(t, 5, series.Len())
	assert.Equal(t, "2018-01-10", series.Value(0, "Date"))

	sites := res.Tables["sites"]
	assert.Equal(t, []any{"P1", "P2", "P3"}, column(t, sites, "Plot_Name"))

	species := res.Tables["species"]
	assert.Equal(t, "Robin", species.Value(0, "Common_Name"))

	filtered, err := newTestEngine().Overview(forest(), []string{"Jay"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Metrics.TotalObservations)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	res, err := newTestEngine().Compare([]Dataset{
		{Name: "Forest", Table: forest()},
		{Name: "Grassland", Table: grassland()},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Compare, res.View)
	assert.Empty(t, res.Notices)

	eco := res.Tables["ecosystem_counts"]
	assert.Equal(t, []any{"Forest", "Grassland"}, column(t, eco, "Ecosystem"))
	assert.Equal(t, []any{int64(5), int64(2)}, column(t, eco, pipeline.ColCount))

	top := res.Tables["top_species"]
	assert.Equal(t, "Robin", top.Value(0, "Common_Name"))
	assert.Equal(t, int64(3), top.Value(0, pipeline.ColCount))

	scatter := res.Tables["scatter"]
	assert.Equal(t, 4, scatter.Len())
	dropped := res.Dropped["scatter"]
	assert.Equal(t, 1, dropped.Count("Temperature", pipeline.ReasonMissing))
	assert.Equal(t, 1, dropped.Count("Temperature", pipeline.ReasonNonNumeric))
	assert.Equal(t, 1, dropped.Count("Humidity", pipeline.ReasonNonNumeric))

	box := res.Tables["temperature_box"]
	assert.Equal(t, []any{int64(4), int64(1)}, column(t, box, pipeline.ColN))

	assert.Equal(t, int64(6), sumCounts(t, res.Tables["year_month"]))
	assert.Equal(t, int64(6), sumCounts(t, res.Tables["activity"]))
	assert.Equal(t, int64(7), sumCounts(t, res.Tables["species_by_ecosystem"]))

	_, err = newTestEngine().Compare(nil, nil)
	require.Error(t, err)
}

func TestScatterMaxPoints(t *testing.T) {
	t.Parallel()

	e := NewEngine(conf.ViewSettings{ScatterMaxPoints: 2}, WithLogger(testutil.QuietLogger()))
	res, err := e.Compare([]Dataset{{Name: "Forest", Table: forest()}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tables["scatter"].Len())
}

func TestAvailability(t *testing.T) {
	t.Parallel()

	minimal := table.MustNew([]string{"Common_Name", "Date", "Temperature"}, nil)
	byID := make(map[string]ViewAvailability)
	for _, va := range Availability(minimal) {
		byID[va.ID] = va
	}

	assert.True(t, byID[Temporal].Available)
	assert.False(t, byID[Behavior].Available)
	assert.Equal(t, []string{"Flyover_Observed"}, byID[Behavior].Tables[0].Missing)
	assert.True(t, byID[Environment].Available, "one weather column is enough for the correlation")
	assert.True(t, byID[Environment].Tables[1].Available)

	for _, va := range Availability(forest()) {
		assert.True(t, va.Available, va.ID)
	}
}

func TestMetricsRecorded(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewViewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	e := newTestEngine(WithMetrics(m))

	_, err = e.Compute(Temporal, forest(), nil)
	require.NoError(t, err)
	_, err = e.Compute(Behavior, table.Empty("Common_Name"), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, promtestutil.CollectAndCount(m, "birdobs_view_computations_total"))
	assert.Equal(t, 1, promtestutil.CollectAndCount(m, "birdobs_view_dropped_values_total"))
	assert.Equal(t, 1, promtestutil.CollectAndCount(m, "birdobs_view_unavailable_tables_total"))
}
