package views

import (
	"time"

	"github.com/tphakala/birdobs/internal/pipeline"
	"github.com/tphakala/birdobs/internal/table"
)

var overviewTables = []TableSpec{
	{Name: "time_series", Title: "Bird Sightings Over Time", Required: []string{colDate}, build: buildTimeSeries},
	{Name: "sites", Title: "Observations Per Site", Required: []string{colPlotName}, build: valueCounts(colPlotName)},
	{Name: "species", Title: "Bird Species Diversity", Required: []string{colCommonName}, build: valueCounts(colCommonName)},
}

// Overview computes the key metrics and summary tables shown for a single dataset
func (e *Engine) Overview(t *table.Table, species []string) (*Result, error) {
	start := time.Now()
	res, err := e.overview(t, species)
	e.finish(Overview, res, err, start)
	return res, err
}

func (e *Engine) overview(t *table.Table, species []string) (*Result, error) {
	filtered, err := filterSpecies(t, species)
	if err != nil {
		return nil, err
	}

	def := Definition{ID: Overview, Title: "Overview", Tables: overviewTables}
	res, err := e.compute(def, filtered, nil)
	if err != nil {
		return nil, err
	}

	rep := pipeline.NewReport()
	m := pipeline.KeyMetrics(filtered, rep)
	res.Metrics = &m
	if !rep.Empty() {
		res.Dropped["metrics"] = rep
	}
	return res, nil
}

// buildTimeSeries counts named sightings per date, oldest first
func buildTimeSeries(_ *Engine, s *state, rep *pipeline.Report) (*table.Table, string, error) {
	counts, err := pipeline.CountByWith(sightings(s.t, rep), pipeline.GroupOptions{Report: rep}, colDate)
	if err != nil {
		return nil, "", err
	}
	out, err := pipeline.SortBy(counts, colDate, false)
	return out, "", err
}
