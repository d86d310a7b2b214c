package table

// Builder accumulates rows for a new table
type Builder struct {
	columns []string
	rows    [][]any
}

// NewBuilder starts a table with the given columns
func NewBuilder(columns ...string) *Builder {
	return &Builder{columns: columns}
}

// Add appends one row. Values must match the column count; Build reports mismatches.
func (b *Builder) Add(values ...any) *Builder {
	b.rows = append(b.rows, values)
	return b
}

// Grow reserves capacity for n more rows
func (b *Builder) Grow(n int) {
	if n <= 0 {
		return
	}
	rows := make([][]any, len(b.rows), len(b.rows)+n)
	copy(rows, b.rows)
	b.rows = rows
}

// Build returns the table
func (b *Builder) Build() (*Table, error) {
	return New(b.columns, b.rows)
}

// MustBuild is Build for rows the caller constructed with the right width
func (b *Builder) MustBuild() *Table {
	return MustNew(b.columns, b.rows)
}
