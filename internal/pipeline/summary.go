package pipeline

import (
	"encoding/json"
	"math"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tphakala/birdobs/internal/table"
)

// Metrics are the headline figures shown above a dataset overview
type Metrics struct {
	TotalObservations int     `json:"total_observations"`
	UniqueSpecies     int     `json:"unique_species"`
	AvgTemperature    float64 `json:"avg_temperature"` // NaN when no numeric temperature exists
	UniqueLocations   int     `json:"unique_locations"`
}

// KeyMetrics summarises t. Absent columns contribute zero (or NaN for the temperature mean).
func KeyMetrics(t *table.Table, rep *Report) Metrics {
	m := Metrics{
		TotalObservations: t.Len(),
		UniqueSpecies:     distinctCount(t, ColCommonName),
		UniqueLocations:   distinctCount(t, ColPlotName),
		AvgTemperature:    nan,
	}
	if t.Has(ColTemp) {
		m.AvgTemperature = mean(finite(numericColumn(t, ColTemp, rep)))
	}
	return m
}

// MarshalJSON encodes an undefined average temperature as null
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	out := struct {
		alias
		AvgTemperature *float64 `json:"avg_temperature"`
	}{alias: alias(m)}
	if !math.IsNaN(m.AvgTemperature) && !math.IsInf(m.AvgTemperature, 0) {
		out.AvgTemperature = &m.AvgTemperature
	}
	return json.Marshal(out)
}

// distinctCount counts the distinct non-missing values of column, zero when absent
func distinctCount(t *table.Table, column string) int {
	j, ok := t.ColumnIndex(column)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for r := range t.Len() {
		if v := t.Cell(r, j); !table.IsMissing(v) {
			seen[table.Key(v)] = struct{}{}
		}
	}
	return len(seen)
}

// DistinctValues returns the distinct non-missing values of column as text,
// ordered with English collation (case and accent aware, e.g. for species pickers).
func DistinctValues(t *table.Table, column string) ([]string, error) {
	if err := missingColumns(t, "distinct_values", column); err != nil {
		return nil, err
	}

	j, _ := t.ColumnIndex(column)
	seen := make(map[string]struct{})
	values := []string{}
	for r := range t.Len() {
		v := t.Cell(r, j)
		if table.IsMissing(v) {
			continue
		}
		k := table.Key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, k)
	}

	collate.New(language.English).SortStrings(values)
	return values, nil
}
