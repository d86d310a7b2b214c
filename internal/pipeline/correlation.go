package pipeline

import (
	"math"

	"github.com/tphakala/birdobs/internal/table"
	"gonum.org/v1/gonum/stat"
)

// ColColumn labels the row dimension of a correlation matrix
const ColColumn = "Column"

// CorrelationMatrix computes pairwise Pearson correlations between the given
// columns after numeric coercion. Each column drops its non-coercible values
// independently and each pair uses the rows where both values are present.
// Columns absent from t are skipped. The result has a Column label followed
// by one column per present input column; undefined correlations are NaN.
func CorrelationMatrix(t *table.Table, cols []string, rep *Report) *table.Table {
	var present []string
	for _, c := range cols {
		if t.Has(c) {
			present = append(present, c)
		}
	}

	values := make([][]float64, len(present))
	for i, c := range present {
		values[i] = numericColumn(t, c, rep)
	}

	m := make([][]float64, len(present))
	for i := range m {
		m[i] = make([]float64, len(present))
	}
	for i := range present {
		m[i][i] = selfCorrelation(values[i])
		for j := i + 1; j < len(present); j++ {
			r := pairwiseCorrelation(values[i], values[j])
			m[i][j], m[j][i] = r, r
		}
	}

	out := table.NewBuilder(append([]string{ColColumn}, present...)...)
	for i, c := range present {
		row := make([]any, 0, len(present)+1)
		row = append(row, c)
		for j := range present {
			row = append(row, m[i][j])
		}
		out.Add(row...)
	}
	return out.MustBuild()
}

// selfCorrelation is 1 for a column with nonzero variance and NaN otherwise
func selfCorrelation(xs []float64) float64 {
	valid := finite(xs)
	if len(valid) < 2 || stat.Variance(valid, nil) == 0 {
		return nan
	}
	return 1
}

func pairwiseCorrelation(xs, ys []float64) float64 {
	var a, b []float64
	for k := range xs {
		if math.IsNaN(xs[k]) || math.IsNaN(ys[k]) {
			continue
		}
		a = append(a, xs[k])
		b = append(b, ys[k])
	}
	if len(a) < 2 || stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return nan
	}
	r := stat.Correlation(a, b, nil)
	// rounding can push |r| marginally past 1
	return math.Max(-1, math.Min(1, r))
}
