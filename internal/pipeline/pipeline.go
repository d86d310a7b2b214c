// Package pipeline implements the stateless derivations that turn a raw
// observation table into small chart-ready summary tables.
//
// Every operation reads its input table without modifying it and returns a
// new table. An empty input yields an empty output. Operations that have to
// discard values (unparseable dates, non-numeric measurements, missing group
// keys) record what they dropped in an optional *Report instead of failing.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/table"
)

// Canonical observation columns used by the derivations
const (
	ColCommonName = "Common_Name"
	ColDate       = "Date"
	ColYear       = "Year"
	ColMonth      = "Month"
	ColDay        = "Day"
	ColSeason     = "Season"
	ColCount      = "Count"
	ColPlotName   = "Plot_Name"
	ColTemp       = "Temperature"
)

// Sentinel errors
var (
	// ErrMissingColumn is returned when a grouping or measure column is absent
	ErrMissingColumn = errors.NewStd("missing column")

	// ErrInvalidArgument is returned for out-of-contract parameters such as a negative n
	ErrInvalidArgument = errors.NewStd("invalid argument")
)

// missingColumns returns an ErrMissingColumn error naming the absent columns, or nil
func missingColumns(t *table.Table, op string, required ...string) error {
	missing := t.Missing(required...)
	if len(missing) == 0 {
		return nil
	}
	return errors.New(fmt.Errorf("%s: %w: %s", op, ErrMissingColumn, strings.Join(missing, ", "))).
		Component("pipeline").
		Category(errors.CategoryMissingColumn).
		ColumnContext(missing...).
		Context("operation", op).
		Build()
}

func invalidArgument(op, format string, args ...any) error {
	return errors.New(fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, fmt.Sprintf(format, args...))).
		Component("pipeline").
		Category(errors.CategoryValidation).
		Context("operation", op).
		Build()
}

// UniqueColumn names the measure produced by UniqueCountBy for column c
func UniqueColumn(c string) string {
	return "Unique_" + c
}
