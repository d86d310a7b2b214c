package views

import (
	"fmt"
	"slices"

	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
)

// Observation columns read by the views
const (
	colPlotName         = pipeline.ColPlotName
	colCommonName       = pipeline.ColCommonName
	colDate             = pipeline.ColDate
	colTemperature      = pipeline.ColTemp
	colHumidity         = "Humidity"
	colDistance         = "Distance"
	colIDMethod         = "ID_Method"
	colIntervalLength   = "Interval_Length"
	colFlyover          = "Flyover_Observed"
	colObserver         = "Observer"
	colVisit            = "Visit"
	colWatchlist        = "PIF_Watchlist_Status"
	colStewardship      = "Regional_Stewardship_Status"
	colAOUCode          = "AOU_Code"
	colLocationType     = "Location_Type"
	colEcosystem        = "Ecosystem"
	colUniqueSpecies    = "Unique_Species"
	colBirdCount        = "Bird_Count"
	colUniqueCommonName = "Unique_Common_Name"
)

// weatherColumns feed the environment correlation matrix
var weatherColumns = []string{colTemperature, colHumidity, colDistance}

// buildFunc derives one summary table. A non-empty notice is shown next to the table.
type buildFunc func(e *Engine, s *state, rep *pipeline.Report) (t *table.Table, notice string, err error)

// TableSpec describes one summary table of a view
type TableSpec struct {
	Name     string
	Title    string
	Required []string // all must be present
	AnyOf    []string // at least one must be present

	build buildFunc
}

// missing returns the absent columns that make the table underivable
func (ts TableSpec) missing(t *table.Table) []string {
	missing := t.Missing(ts.Required...)
	if len(ts.AnyOf) > 0 && len(t.Missing(ts.AnyOf...)) == len(ts.AnyOf) {
		missing = append(missing, ts.AnyOf...)
	}
	return missing
}

// Definition is a selectable insight view
type Definition struct {
	ID     string
	Title  string
	Tables []TableSpec
}

var definitions = []Definition{
	{
		ID:    Temporal,
		Title: "Temporal Analysis",
		Tables: []TableSpec{
			{Name: "year_month", Title: "Year-wise and Month-wise Observations", Required: []string{colDate}, build: buildYearMonth},
			{Name: "seasons", Title: "Bird Sightings Across Different Seasons", Required: []string{colDate}, build: buildSeasons},
		},
	},
	{
		ID:    Spatial,
		Title: "Spatial Analysis",
		Tables: []TableSpec{
			{Name: "top_plots", Title: "Top Plots with Highest Species Diversity", Required: []string{colPlotName, colCommonName}, build: buildTopPlots},
		},
	},
	{
		ID:    Species,
		Title: "Species Analysis",
		Tables: []TableSpec{
			{Name: "id_methods", Title: "Most Common Identification Methods", Required: []string{colIDMethod}, build: valueCounts(colIDMethod)},
			{Name: "interval_lengths", Title: "Most Common Observation Interval Lengths", Required: []string{colIntervalLength}, build: valueCounts(colIntervalLength)},
		},
	},
	{
		ID:    Environment,
		Title: "Environmental Conditions",
		Tables: []TableSpec{
			{Name: "correlation", Title: "Correlation Between Weather Conditions", AnyOf: weatherColumns, build: buildCorrelation},
			{Name: "temperature_species", Title: "Impact of Temperature on Bird Sightings", Required: []string{colTemperature, colCommonName}, build: buildTemperatureSpecies},
		},
	},
	{
		ID:    Behavior,
		Title: "Distance and Behavior",
		Tables: []TableSpec{
			{Name: "flyover", Title: "Frequency of Flyover Observations", Required: []string{colFlyover}, build: valueCounts(colFlyover)},
		},
	},
	{
		ID:    Observers,
		Title: "Observer Trends",
		Tables: []TableSpec{
			{Name: "observers", Title: "Observer Bias in Bird Observations", Required: []string{colObserver, colCommonName}, build: buildObservers},
			{Name: "visits", Title: "Impact of Visit Patterns on Species Count", Required: []string{colVisit, colCommonName}, build: buildVisits},
		},
	},
	{
		ID:    Conservation,
		Title: "Conservation Insights",
		Tables: []TableSpec{
			{Name: "watchlist", Title: "Watchlist Trends and Regional Stewardship Status", Required: []string{colWatchlist, colStewardship, colCommonName}, build: buildWatchlist},
			{Name: "aou_histogram", Title: "Distribution of Species Based on AOU Code", Required: []string{colAOUCode}, build: buildAOUHistogram},
		},
	},
}

// List returns the insight views in selector order
func List() []Definition {
	return slices.Clone(definitions)
}

// Lookup finds a view by id
func Lookup(id string) (Definition, bool) {
	for _, d := range definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// TableAvailability reports whether one summary table can be derived
type TableAvailability struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Available bool     `json:"available"`
	Missing   []string `json:"missing,omitempty"`
}

// ViewAvailability reports which tables of a view can be derived from a dataset
type ViewAvailability struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Available bool                `json:"available"` // at least one table can be derived
	Tables    []TableAvailability `json:"tables"`
}

// Availability checks every view against the columns of t
func Availability(t *table.Table) []ViewAvailability {
	out := make([]ViewAvailability, 0, len(definitions))
	for _, d := range definitions {
		va := ViewAvailability{ID: d.ID, Title: d.Title}
		for _, spec := range d.Tables {
			missing := spec.missing(t)
			ta := TableAvailability{Name: spec.Name, Title: spec.Title, Available: len(missing) == 0, Missing: missing}
			va.Available = va.Available || ta.Available
			va.Tables = append(va.Tables, ta)
		}
		out = append(out, va)
	}
	return out
}

func buildYearMonth(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	b, err := s.bucket(colDate, pipeline.BucketSeason, rep)
	if err != nil {
		return nil, "", err
	}
	counts, err := pipeline.CountBy(b, pipeline.ColYear, pipeline.ColMonth)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.SortByKeys(counts, pipeline.Asc(pipeline.ColYear), pipeline.Asc(pipeline.ColMonth))
	return out, "", err
}

// buildSeasons lists seasons in calendar order starting with winter
func buildSeasons(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	b, err := s.bucket(colDate, pipeline.BucketSeason, rep)
	if err != nil {
		return nil, "", err
	}
	counts, err := pipeline.CountBy(sightings(b, rep), pipeline.ColSeason)
	if err != nil {
		return nil, "", err
	}

	bySeason := make(map[string]any, len(pipeline.Seasons))
	for _, rec := range counts.Records() {
		bySeason[table.Key(rec[pipeline.ColSeason])] = rec[pipeline.ColCount]
	}
	out := table.NewBuilder(pipeline.ColSeason, pipeline.ColCount)
	for _, season := range pipeline.Seasons {
		if n, ok := bySeason[season]; ok {
			out.Add(season, n)
		}
	}
	t, err := out.Build()
	return t, "", err
}

// sightings drops rows without a species name. Activity tables count named
// birds, not rows.
func sightings(t *table.Table, rep *pipeline.Report) *table.Table {
	j, ok := t.ColumnIndex(colCommonName)
	if !ok {
		return t
	}
	named := t.Filter(func(row []any) bool { return !table.IsMissing(row[j]) })
	rep.Add(colCommonName, pipeline.ReasonMissing, t.Len()-named.Len())
	return named
}

func buildTopPlots(e *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	diversity, err := pipeline.UniqueCountBy(s.t, colPlotName, colCommonName)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.TopN(diversity, colUniqueCommonName, e.settings.TopPlots)
	return out, "", err
}

// valueCounts counts the values of column, most frequent first
func valueCounts(column string) buildFunc {
	return func(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
		out, err := countDesc(s.t, rep, column)
		return out, "", err
	}
}

func countDesc(t *table.Table, rep *pipeline.Report, cols ...string) (*table.Table, error) {
	counts, err := pipeline.CountByWith(t, pipeline.GroupOptions{Report: rep}, cols...)
	if err != nil {
		return nil, err
	}
	return pipeline.SortBy(counts, pipeline.ColCount, true)
}

func buildCorrelation(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	return pipeline.CorrelationMatrix(s.t, weatherColumns, rep), "", nil
}

func buildTemperatureSpecies(_ *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	out, err := uniqueSpeciesBy(s.t, colTemperature, colBirdCount)
	if err != nil {
		return nil, "", err
	}
	out, err = pipeline.SortBy(out, colTemperature, false)
	return out, "", err
}

// uniqueSpeciesBy counts distinct species per group under the column name measure
func uniqueSpeciesBy(t *table.Table, group, measure string) (*table.Table, error) {
	counts, err := pipeline.UniqueCountBy(t, group, colCommonName)
	if err != nil {
		return nil, err
	}
	return counts.Rename(colUniqueCommonName, measure)
}

func buildObservers(_ *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	out, err := uniqueSpeciesBy(s.t, colObserver, colUniqueSpecies)
	if err != nil {
		return nil, "", err
	}
	out, err = pipeline.SortBy(out, colUniqueSpecies, true)
	return out, "", err
}

func buildVisits(_ *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	out, err := uniqueSpeciesBy(s.t, colVisit, colUniqueSpecies)
	if err != nil {
		return nil, "", err
	}
	out, err = pipeline.SortBy(out, colVisit, false)
	return out, "", err
}

func buildWatchlist(_ *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	counts, err := pipeline.UniqueCountByWith(s.t, pipeline.GroupOptions{}, colCommonName, colWatchlist, colStewardship)
	if err != nil {
		return nil, "", err
	}
	out, err := counts.Rename(colUniqueCommonName, colUniqueSpecies)
	return out, "", err
}

// buildAOUHistogram bins numeric AOU codes. Alphabetic codes cannot be
// binned, so a column without any numeric value is summarised as value counts.
func buildAOUHistogram(e *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	values, _ := s.t.Column(colAOUCode)
	numeric, present := 0, 0
	for _, v := range values {
		if table.IsMissing(v) {
			continue
		}
		present++
		if _, ok := table.ToFloat(v); ok {
			numeric++
		}
	}

	if numeric == 0 && present > 0 {
		out, err := countDesc(s.t, nil, colAOUCode)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Distribution of Species Based on AOU Code: %s values are not numeric, showing value counts", colAOUCode), nil
	}

	out, err := pipeline.HistogramCounts(s.t, colAOUCode, e.settings.HistogramBins, rep)
	return out, "", err
}
