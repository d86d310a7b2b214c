package pipeline

import (
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/tphakala/birdobs/internal/table"
)

// Histogram output columns
const (
	ColBinStart = "Bin_Start"
	ColBinEnd   = "Bin_End"
)

// HistogramCounts bins the numeric values of col into bins equal-width bins
// spanning the observed minimum and maximum. Missing and non-numeric values
// (infinities included) are dropped first; non-numeric ones are recorded in
// rep. Bins are half open except the last, which also includes the maximum,
// so the counts sum to the number of valid values. When every value is equal
// the range is widened by 0.5 on each side.
func HistogramCounts(t *table.Table, col string, bins int, rep *Report) (*table.Table, error) {
	if bins < 1 {
		return nil, invalidArgument("histogram_counts", "bins must be >= 1, got %d", bins)
	}
	if err := missingColumns(t, "histogram_counts", col); err != nil {
		return nil, err
	}

	out := table.NewBuilder(ColBinStart, ColBinEnd, ColCount)

	xs := finite(numericColumn(t, col, rep))
	if len(xs) == 0 {
		return out.Build()
	}

	lo, hi := stats.Bounds(xs)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
		if lo == hi {
			lo, hi = math.Nextafter(lo, math.Inf(-1)), math.Nextafter(hi, math.Inf(1))
		}
	}
	n := float64(bins)
	width := hi/n - lo/n

	h := stats.NewLinearHist(lo, hi, bins)
	add := h.Add
	if math.IsInf(hi-lo, 0) {
		// the span overflows; bin in units of width instead
		h = stats.NewLinearHist(0, n, bins)
		add = func(x float64) { h.Add(x/width - lo/width) }
	}
	for _, x := range xs {
		add(x)
	}

	_, inRange, above := h.Counts()
	counts := make([]int64, bins)
	for i, c := range inRange {
		counts[i] = int64(c)
	}
	// the maximum lands past the last bin; the last bin is closed
	counts[bins-1] += int64(above)

	out.Grow(bins)
	for i, c := range counts {
		start := lo + float64(i)*width
		end := lo + float64(i+1)*width
		if i == bins-1 {
			end = hi
		}
		out.Add(start, end, c)
	}
	return out.Build()
}
