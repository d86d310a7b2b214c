package pipeline

import (
	"slices"

	"github.com/tphakala/birdobs/internal/table"
)

// WithConstColumn returns t with column set to value on every row
func WithConstColumn(t *table.Table, column string, value any) (*table.Table, error) {
	return t.WithConst(column, value)
}

// Concat stacks tables vertically. The result has the union of all columns in
// order of first appearance; cells for columns a table lacks are nil.
func Concat(tables ...*table.Table) (*table.Table, error) {
	var columns []string
	for _, t := range tables {
		for _, c := range t.Columns() {
			if !slices.Contains(columns, c) {
				columns = append(columns, c)
			}
		}
	}

	aligned := make([]*table.Table, 0, len(tables))
	for _, t := range tables {
		padded := t
		for _, c := range t.Missing(columns...) {
			var err error
			if padded, err = padded.WithConst(c, nil); err != nil {
				return nil, err
			}
		}
		projected, err := padded.Project(columns...)
		if err != nil {
			return nil, err
		}
		aligned = append(aligned, projected)
	}
	if len(aligned) == 0 {
		return table.Empty(), nil
	}
	return table.Concat(aligned...)
}
