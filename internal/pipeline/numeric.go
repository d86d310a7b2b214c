package pipeline

import (
	"math"

	"github.com/tphakala/birdobs/internal/table"
)

var nan = math.NaN()

// numericColumn coerces column of t to float64. Values that cannot be
// coerced are NaN; non-numeric text is recorded in rep.
func numericColumn(t *table.Table, column string, rep *Report) []float64 {
	j, _ := t.ColumnIndex(column)
	out := make([]float64, t.Len())
	bad := 0
	for r := range t.Len() {
		v := t.Cell(r, j)
		if f, ok := table.ToFloat(v); ok {
			out[r] = f
			continue
		}
		out[r] = nan
		if !table.IsMissing(v) {
			bad++
		}
	}
	rep.Add(column, ReasonNonNumeric, bad)
	return out
}

// finite returns the values of xs that are neither NaN nor infinite
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
