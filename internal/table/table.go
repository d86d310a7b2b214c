// Package table provides the immutable, column-addressed in-memory table used
// for raw observation data and for every derived summary table.
//
// Storage is a go-gg table whose columns are all []any, so cells stay loosely
// typed. Tables are never modified after construction; every derivation
// returns a new Table, possibly sharing column storage with its source.
package table

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/aclements/go-gg/generic/slice"
	ggtable "github.com/aclements/go-gg/table"
)

// Table is an immutable table of loosely typed cells
type Table struct {
	gg      *ggtable.Table
	columns []string
	index   map[string]int
	cols    [][]any // column storage shared with gg
	rows    int
}

// New builds a table from column names and rows. Every row must have one
// value per column and column names must be unique. []byte cells are
// converted to string.
func New(columns []string, rows [][]any) (*Table, error) {
	if _, err := buildIndex(columns); err != nil {
		return nil, err
	}

	cols := make([][]any, len(columns))
	for j := range cols {
		cols[j] = make([]any, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			cols[j][i] = v
		}
	}

	b := new(ggtable.Builder)
	for j, c := range columns {
		b.Add(c, cols[j])
	}
	return wrap(b.Done(), len(rows))
}

// MustNew is like New but panics on malformed input. Intended for literals in tests and fixtures.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given columns and no rows
func Empty(columns ...string) *Table {
	return MustNew(columns, nil)
}

func buildIndex(columns []string) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	return index, nil
}

// wrap adopts a go-gg table. Columns that are not []any, such as constant
// columns, are boxed so every cell reads back as any.
func wrap(g *ggtable.Table, rows int) (*Table, error) {
	if g == nil {
		g = new(ggtable.Table)
	}
	columns := g.Columns()
	index, err := buildIndex(columns)
	if err != nil {
		return nil, err
	}

	t := &Table{columns: columns, index: index, cols: make([][]any, len(columns))}
	if len(columns) > 0 {
		rows = g.Len()
	}
	t.rows = rows

	var boxed *ggtable.Builder
	for j, c := range columns {
		col, ok := g.MustColumn(c).([]any)
		if !ok {
			col = box(g.MustColumn(c))
			if boxed == nil {
				boxed = ggtable.NewBuilder(g)
			}
			boxed.Add(c, col)
		}
		t.cols[j] = col
	}
	if boxed != nil {
		g = boxed.Done()
	}
	t.gg = g
	return t, nil
}

func box(col any) []any {
	v := reflect.ValueOf(col)
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// root returns the single table of an ungrouped result
func root(g ggtable.Grouping) *ggtable.Table {
	if t := g.Table(ggtable.RootGroupID); t != nil {
		return t
	}
	return new(ggtable.Table)
}

func mustWrap(g *ggtable.Table, rows int) *Table {
	t, err := wrap(g, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.rows
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.columns)
}

// Has reports whether column exists
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// HasColumns reports whether every required column exists
func (t *Table) HasColumns(required ...string) bool {
	for _, c := range required {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

// Missing returns the required columns that are absent, in the order given
func (t *Table) Missing(required ...string) []string {
	var missing []string
	for _, c := range required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// ColumnIndex returns the position of column
func (t *Table) ColumnIndex(column string) (int, bool) {
	i, ok := t.index[column]
	return i, ok
}

// Row returns a copy of row i
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.cols))
	for j, col := range t.cols {
		row[j] = col[i]
	}
	return row
}

// Cell returns the cell at row i, column position j
func (t *Table) Cell(i, j int) any {
	return t.cols[j][i]
}

// Value returns the cell at row i in column, or nil when the column is absent
func (t *Table) Value(i int, column string) any {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.cols[j][i]
}

// Column returns a copy of all values of column
func (t *Table) Column(column string) ([]any, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	return slices.Clone(t.cols[j]), true
}

// Select returns a table with the given rows, in the given order
func (t *Table) Select(rows []int) *Table {
	b := new(ggtable.Builder)
	for j, c := range t.columns {
		b.Add(c, slice.Select(t.cols[j], rows))
	}
	return mustWrap(b.Done(), len(rows))
}

// Filter returns the rows for which keep returns true
func (t *Table) Filter(keep func(row []any) bool) *Table {
	var kept []int
	for i := range t.rows {
		if keep(t.Row(i)) {
			kept = append(kept, i)
		}
	}
	return t.Select(kept)
}

// Head returns the first n rows (all rows when n exceeds Len)
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, t.rows))
	if n == t.rows {
		return t
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return t.Select(idx)
}

// WithColumn returns a table with values added as column name, replacing an
// existing column of the same name in place.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if len(values) != t.rows {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if name == "" {
		return nil, fmt.Errorf("column %d has an empty name", len(t.columns))
	}
	return wrap(ggtable.NewBuilder(t.gg).Add(name, values).Done(), t.rows)
}

// WithConst returns a table with column name set to value on every row
func (t *Table) WithConst(name string, value any) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("column %d has an empty name", len(t.columns))
	}
	if value == nil || len(t.columns) == 0 {
		return t.WithColumn(name, make([]any, t.rows))
	}
	return wrap(ggtable.NewBuilder(t.gg).AddConst(name, value).Done(), t.rows)
}

// Project returns a table with only the given columns, in the given order
func (t *Table) Project(columns ...string) (*Table, error) {
	b := new(ggtable.Builder)
	for _, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("column %q not found", c)
		}
		b.Add(c, t.cols[j])
	}
	if _, err := buildIndex(columns); err != nil {
		return nil, err
	}
	return wrap(b.Done(), t.rows)
}

// Records returns the rows as column-keyed maps, mainly for tests and debugging
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.rows)
	for i := range out {
		rec := make(map[string]any, len(t.columns))
		for j, c := range t.columns {
			rec[c] = t.cols[j][i]
		}
		out[i] = rec
	}
	return out
}

// Rename returns t with column from renamed to to. Storage is shared.
func (t *Table) Rename(from, to string) (*Table, error) {
	if !t.Has(from) {
		return nil, fmt.Errorf("column %q not found", from)
	}
	if from == to {
		return t, nil
	}
	if t.Has(to) {
		return nil, fmt.Errorf("duplicate column %q", to)
	}
	return wrap(root(ggtable.Rename(t.gg, from, to)), t.rows)
}

// Concat stacks tables with identical column sets. The column order of the
// first table is kept.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return Empty(), nil
	}
	gs := make([]ggtable.Grouping, 0, len(tables))
	rows := 0
	for _, t := range tables {
		if len(t.columns) != len(tables[0].columns) || !t.HasColumns(tables[0].columns...) {
			return nil, fmt.Errorf("concat: columns %v do not match %v", t.columns, tables[0].columns)
		}
		rows += t.rows
		if t.rows == 0 {
			continue
		}
		aligned, err := t.Project(tables[0].columns...)
		if err != nil {
			return nil, err
		}
		gs = append(gs, aligned.gg)
	}
	if len(gs) == 0 {
		return tables[0].Head(0), nil
	}
	return wrap(root(ggtable.Concat(gs...)), rows)
}
