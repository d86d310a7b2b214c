package pipeline

import (
	"slices"

	"github.com/tphakala/birdobs/internal/table"
)

// SortKey is one column of a multi-column ordering
type SortKey struct {
	Column     string
	Descending bool
}

// Asc and Desc build sort keys
func Asc(column string) SortKey  { return SortKey{Column: column} }
func Desc(column string) SortKey { return SortKey{Column: column, Descending: true} }

// SortBy returns t stably sorted by one column. Non-numeric cells follow
// numeric ones and missing values sort last, in either direction.
func SortBy(t *table.Table, column string, descending bool) (*table.Table, error) {
	return SortByKeys(t, SortKey{Column: column, Descending: descending})
}

// SortByKeys returns t stably sorted by keys in priority order
func SortByKeys(t *table.Table, keys ...SortKey) (*table.Table, error) {
	cols := make([]string, len(keys))
	for i, k := range keys {
		cols[i] = k.Column
	}
	if err := missingColumns(t, "sort_by", cols...); err != nil {
		return nil, err
	}

	idx := make([]int, len(keys))
	for i, k := range keys {
		idx[i], _ = t.ColumnIndex(k.Column)
	}

	order := make([]int, t.Len())
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		for i, k := range keys {
			va, vb := t.Cell(a, idx[i]), t.Cell(b, idx[i])
			c := table.Compare(va, vb)
			if c == 0 {
				continue
			}
			// the class order (numbers, times, text, missing) holds in either direction
			if k.Descending && table.SameKind(va, vb) {
				c = -c
			}
			return c
		}
		return 0
	})

	return t.Select(order), nil
}

// TopN returns the n rows with the largest rankCol values, ties kept in input
// order. n larger than the row count returns every row sorted; n == 0 returns
// an empty table with the same columns; negative n is an error.
func TopN(t *table.Table, rankCol string, n int) (*table.Table, error) {
	if n < 0 {
		return nil, invalidArgument("top_n", "n must be >= 0, got %d", n)
	}
	sorted, err := SortBy(t, rankCol, true)
	if err != nil {
		return nil, err
	}
	return sorted.Head(n), nil
}
