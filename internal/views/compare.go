package views

import (
	"time"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
)

// Dataset is a named table taking part in a comparison
type Dataset struct {
	Name  string
	Table *table.Table
}

var compareTables = []TableSpec{
	{Name: "top_species", Title: "Most Observed Bird Species", Required: []string{colCommonName}, build: buildTopSpecies},
	{Name: "year_month", Title: "Year-wise and Month-wise Observations", Required: []string{colDate}, build: buildYearMonthCompare},
	{Name: "scatter", Title: "Environmental Factors vs Bird Activity", Required: []string{colTemperature, colHumidity, colCommonName}, build: buildScatter},
	{Name: "activity", Title: "High-Activity Regions and Seasons", Required: []string{colLocationType, colDate}, build: buildActivity},
	{Name: "ecosystem_counts", Title: "Bird Observations in Different Ecosystems", Required: []string{colEcosystem}, build: buildEcosystemCounts},
	{Name: "temperature_box", Title: "Temperature Variation Between Ecosystems", Required: []string{colTemperature}, build: buildTemperatureBox},
	{Name: "species_by_ecosystem", Title: "Species Distribution Across Ecosystems", Required: []string{colCommonName}, build: buildSpeciesByEcosystem},
}

// Compare tags every dataset with an Ecosystem column, merges them and
// derives the comparison tables. species filters the merged table.
func (e *Engine) Compare(datasets []Dataset, species []string) (*Result, error) {
	start := time.Now()
	res, err := e.compare(datasets, species)
	e.finish(Compare, res, err, start)
	return res, err
}

func (e *Engine) compare(datasets []Dataset, species []string) (*Result, error) {
	if len(datasets) == 0 {
		return nil, errors.Newf("compare needs at least one dataset").
			Component("views").
			Category(errors.CategoryValidation).
			Build()
	}

	tagged := make([]*table.Table, 0, len(datasets))
	for _, ds := range datasets {
		t, err := pipeline.WithConstColumn(ds.Table, colEcosystem, ds.Name)
		if err != nil {
			return nil, err
		}
		tagged = append(tagged, t)
	}
	combined, err := pipeline.Concat(tagged...)
	if err != nil {
		return nil, err
	}

	return e.compute(Definition{ID: Compare, Title: "Compare Datasets", Tables: compareTables}, combined, species)
}

func buildTopSpecies(e *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	counts, err := pipeline.CountByWith(s.t, pipeline.GroupOptions{Report: rep}, colCommonName)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.TopN(counts, pipeline.ColCount, e.settings.TopSpecies)
	return out, "", err
}

func buildYearMonthCompare(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	b, err := s.bucket(colDate, pipeline.BucketMonth, rep)
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

// buildScatter emits one numeric point per observation with both readings
func buildScatter(e *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	tj, _ := s.t.ColumnIndex(colTemperature)
	hj, _ := s.t.ColumnIndex(colHumidity)
	nj, _ := s.t.ColumnIndex(colCommonName)
	ej, _ := s.t.ColumnIndex(colEcosystem)

	out := table.NewBuilder(colTemperature, colHumidity, colCommonName, colEcosystem)
	limit := e.settings.ScatterMaxPoints
	points := 0
	for r := range s.t.Len() {
		row := s.t.Row(r)
		temp, okT := coerce(row[tj], colTemperature, rep)
		hum, okH := coerce(row[hj], colHumidity, rep)
		if !okT || !okH {
			continue
		}
		if limit > 0 && points >= limit {
			continue
		}
		out.Add(temp, hum, row[nj], row[ej])
		points++
	}
	t, err := out.Build()
	return t, "", err
}

// coerce converts v to a float, recording why it could not
func coerce(v any, column string, rep *pipeline.Report) (float64, bool) {
	if table.IsMissing(v) {
		rep.Add(column, pipeline.ReasonMissing, 1)
		return 0, false
	}
	f, ok := table.ToFloat(v)
	if !ok {
		rep.Add(column, pipeline.ReasonNonNumeric, 1)
	}
	return f, ok
}

func buildActivity(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	b, err := s.bucket(colDate, pipeline.BucketMonth, rep)
	if err != nil {
		return nil, "", err
	}
	counts, err := pipeline.CountByWith(b, pipeline.GroupOptions{Report: rep}, colLocationType, pipeline.ColMonth)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.SortByKeys(counts, pipeline.Asc(pipeline.ColMonth), pipeline.Asc(colLocationType))
	return out, "", err
}

func buildEcosystemCounts(_ *Engine, s *state, _ *pipeline.Report) (*table.Table, string, error) {
	out, err := pipeline.CountBy(s.t, colEcosystem)
	return out, "", err
}

func buildTemperatureBox(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	out, err := pipeline.BoxStats(s.t, colEcosystem, colTemperature, rep)
	return out, "", err
}

func buildSpeciesByEcosystem(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	counts, err := pipeline.CountByWith(s.t, pipeline.GroupOptions{Report: rep}, colEcosystem, colCommonName)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.SortByKeys(counts, pipeline.Asc(colEcosystem), pipeline.Desc(pipeline.ColCount))
	return out, "", err
}
