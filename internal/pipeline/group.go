package pipeline

import (
	"strconv"
	"strings"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/ggstat"
	ggtable "github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/tphakala/birdobs/internal/table"
)

// GroupOptions tunes the grouping operations
type GroupOptions struct {
	// KeepMissing makes rows with a missing group value form their own group
	// instead of being skipped.
	KeepMissing bool

	// Report receives counts of rows skipped for missing group values
	Report *Report
}

// group is one distinct key combination and its rows
type group struct {
	values []any
	rows   *table.Table
}

// groupKey writes the canonical key of one row. Numbers of different
// representation share a key, missing never equals empty text.
func groupKey(sb *strings.Builder, values []any) {
	sb.Reset()
	for k, v := range values {
		if k > 0 {
			sb.WriteByte(0)
		}
		if v == nil {
			sb.WriteByte(1)
		}
		sb.WriteString(table.Key(v))
	}
}

// groupRows partitions t by the values of cols. Groups are returned in order
// of first occurrence.
func groupRows(t *table.Table, cols []string, opts GroupOptions) ([]*group, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i], _ = t.ColumnIndex(c)
	}

	var (
		kept   = make([]int, 0, t.Len())
		keys   = make([]string, 0, t.Len())
		values = make([]any, len(idx))
		sb     strings.Builder
	)

rows:
	for r := range t.Len() {
		for k, j := range idx {
			v := t.Cell(r, j)
			if table.IsMissing(v) {
				if !opts.KeepMissing {
					opts.Report.Add(cols[k], ReasonMissing, 1)
					continue rows
				}
				v = nil
			}
			values[k] = v
		}
		groupKey(&sb, values)
		kept = append(kept, r)
		keys = append(keys, sb.String())
	}

	src := t
	if len(kept) != t.Len() {
		src = t.Select(kept)
	}
	parts, err := src.Partition(keys)
	if err != nil {
		return nil, err
	}

	groups := make([]*group, len(parts))
	for i, part := range parts {
		g := &group{values: make([]any, len(cols)), rows: part}
		for k, c := range cols {
			if v := part.Value(0, c); !table.IsMissing(v) {
				g.values[k] = v
			}
		}
		groups[i] = g
	}
	return groups, nil
}

// CountBy returns one row per distinct combination of cols with a Count
// column. Rows with a missing value in any of cols are skipped. Output order
// is first occurrence; callers that need a ranking sort explicitly.
func CountBy(t *table.Table, cols ...string) (*table.Table, error) {
	return CountByWith(t, GroupOptions{}, cols...)
}

// CountByWith is CountBy with explicit options
func CountByWith(t *table.Table, opts GroupOptions, cols ...string) (*table.Table, error) {
	if len(cols) == 0 {
		return nil, invalidArgument("count_by", "no grouping columns")
	}
	if err := missingColumns(t, "count_by", cols...); err != nil {
		return nil, err
	}

	groups, err := groupRows(t, cols, opts)
	if err != nil {
		return nil, err
	}
	out := table.NewBuilder(append(append([]string{}, cols...), ColCount)...)
	out.Grow(len(groups))
	for _, g := range groups {
		out.Add(append(g.values, int64(g.rows.Len()))...)
	}
	return out.Build()
}

// UniqueCountBy counts the distinct non-missing values of distinct within each
// group. The measure column is named Unique_<distinct>.
func UniqueCountBy(t *table.Table, groupCol, distinct string) (*table.Table, error) {
	return UniqueCountByWith(t, GroupOptions{}, distinct, groupCol)
}

// UniqueCountByWith counts distinct values of distinct per combination of groupCols
func UniqueCountByWith(t *table.Table, opts GroupOptions, distinct string, groupCols ...string) (*table.Table, error) {
	if len(groupCols) == 0 {
		return nil, invalidArgument("unique_count_by", "no grouping columns")
	}
	if err := missingColumns(t, "unique_count_by", append(append([]string{}, groupCols...), distinct)...); err != nil {
		return nil, err
	}

	groups, err := groupRows(t, groupCols, opts)
	if err != nil {
		return nil, err
	}
	out := table.NewBuilder(append(append([]string{}, groupCols...), UniqueColumn(distinct))...)
	out.Grow(len(groups))
	for _, g := range groups {
		out.Add(append(g.values, int64(distinctCount(g.rows, distinct)))...)
	}
	return out.Build()
}

// MeanBy averages the numeric values of measure per group. Non-numeric values
// are dropped and recorded; a group with no numeric values gets NaN.
// The measure column is named Mean_<measure>.
func MeanBy(t *table.Table, groupCol, measure string, rep *Report) (*table.Table, error) {
	if err := missingColumns(t, "mean_by", groupCol, measure); err != nil {
		return nil, err
	}

	groups, err := groupRows(t, []string{groupCol}, GroupOptions{Report: rep})
	if err != nil {
		return nil, err
	}

	// numeric samples labelled with the position of their group
	var (
		labels []string
		xs     []float64
	)
	for gi, g := range groups {
		label := strconv.Itoa(gi)
		for r := range g.rows.Len() {
			v := g.rows.Value(r, measure)
			if f, ok := table.ToFloat(v); ok {
				labels = append(labels, label)
				xs = append(xs, f)
			} else if !table.IsMissing(v) {
				rep.Add(measure, ReasonNonNumeric, 1)
			}
		}
	}

	means := make([]float64, len(groups))
	for i := range means {
		means[i] = nan
	}
	if len(xs) > 0 {
		samples := new(ggtable.Builder).Add("group", labels).Add(measure, xs).Done()
		agg := ggstat.Agg("group")(ggstat.AggMean(measure)).F(samples)
		res := agg.Table(ggtable.RootGroupID)

		var (
			gcol []string
			mcol []float64
		)
		slice.Convert(&gcol, res.MustColumn("group"))
		slice.Convert(&mcol, res.MustColumn("mean "+measure))
		for i, label := range gcol {
			gi, err := strconv.Atoi(label)
			if err != nil {
				return nil, err
			}
			means[gi] = mcol[i]
		}
	}

	out := table.NewBuilder(groupCol, "Mean_"+measure)
	out.Grow(len(groups))
	for gi, g := range groups {
		out.Add(g.values[0], means[gi])
	}
	return out.Build()
}

// mean is NaN for an empty sample
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return nan
	}
	return stats.Mean(xs)
}
