package pipeline

import (
	"encoding/json"
	"maps"
	"slices"
)

// Drop reasons recorded in a Report
const (
	ReasonMissing         = "missing"
	ReasonUnparseableDate = "unparseable_date"
	ReasonNonNumeric      = "non_numeric"
)

// Report counts values discarded while deriving tables, per column and reason.
// The zero value is ready to use. A nil *Report discards everything.
// A Report is not safe for concurrent use.
type Report struct {
	dropped map[string]map[string]int
}

// NewReport returns an empty report
func NewReport() *Report {
	return &Report{}
}

// Add records n dropped values of column for reason
func (r *Report) Add(column, reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	if r.dropped == nil {
		r.dropped = make(map[string]map[string]int)
	}
	byReason := r.dropped[column]
	if byReason == nil {
		byReason = make(map[string]int)
		r.dropped[column] = byReason
	}
	byReason[reason] += n
}

// Count returns the dropped count for column and reason
func (r *Report) Count(column, reason string) int {
	if r == nil {
		return 0
	}
	return r.dropped[column][reason]
}

// Total returns all dropped values across columns and reasons
func (r *Report) Total() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, byReason := range r.dropped {
		for _, n := range byReason {
			total += n
		}
	}
	return total
}

// Empty reports whether nothing was dropped
func (r *Report) Empty() bool {
	return r.Total() == 0
}

// Merge adds other's counts into r
func (r *Report) Merge(other *Report) {
	if r == nil || other == nil {
		return
	}
	for column, byReason := range other.dropped {
		for reason, n := range byReason {
			r.Add(column, reason, n)
		}
	}
}

// Columns returns the columns with drops, sorted
func (r *Report) Columns() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.dropped))
}

// Map returns a copy of the counts keyed by column then reason
func (r *Report) Map() map[string]map[string]int {
	out := make(map[string]map[string]int)
	if r == nil {
		return out
	}
	for column, byReason := range r.dropped {
		out[column] = maps.Clone(byReason)
	}
	return out
}

// Each calls fn for every recorded (column, reason, count)
func (r *Report) Each(fn func(column, reason string, n int)) {
	for _, column := range r.Columns() {
		byReason := r.dropped[column]
		for _, reason := range slices.Sorted(maps.Keys(byReason)) {
			fn(column, reason, byReason[reason])
		}
	}
}

// MarshalJSON encodes the report as {"column": {"reason": n}}
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
