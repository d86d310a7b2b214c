package pipeline

import (
	"slices"

	"github.com/aclements/go-moremath/stats"
	"github.com/tphakala/birdobs/internal/table"
)

// Box statistic columns
const (
	ColMin    = "Min"
	ColQ1     = "Q1"
	ColMedian = "Median"
	ColQ3     = "Q3"
	ColMax    = "Max"
	ColN      = "N"
)

// BoxStats summarises the numeric values of valueCol per group as five-number
// summaries plus the sample size. Groups without numeric values are omitted.
func BoxStats(t *table.Table, groupCol, valueCol string, rep *Report) (*table.Table, error) {
	if err := missingColumns(t, "box_stats", groupCol, valueCol); err != nil {
		return nil, err
	}

	groups, err := groupRows(t, []string{groupCol}, GroupOptions{Report: rep})
	if err != nil {
		return nil, err
	}

	out := table.NewBuilder(groupCol, ColMin, ColQ1, ColMedian, ColQ3, ColMax, ColN)
	for _, g := range groups {
		xs := finite(numericColumn(g.rows, valueCol, rep))
		if len(xs) == 0 {
			continue
		}

		slices.Sort(xs)
		s := stats.Sample{Xs: xs, Sorted: true}
		lo, hi := s.Bounds()
		out.Add(g.values[0], lo, s.Quantile(0.25), s.Quantile(0.5), s.Quantile(0.75), hi, int64(len(xs)))
	}
	return out.Build()
}
