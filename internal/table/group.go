package table

import (
	"fmt"

	ggtable "github.com/aclements/go-gg/table"
)

// keyColumn holds the partition keys while grouping; it never leaves this file
const keyColumn = "\x00key"

// Partition splits t into one table per distinct key, in order of first
// occurrence. keys holds one canonical key per row; rows with the same key
// land in the same part.
func (t *Table) Partition(keys []string) ([]*Table, error) {
	if len(keys) != t.rows {
		return nil, fmt.Errorf("partition: %d keys for %d rows", len(keys), t.rows)
	}
	if t.rows == 0 {
		return nil, nil
	}

	col := make([]any, len(keys))
	for i, k := range keys {
		col[i] = k
	}
	keyed := ggtable.NewBuilder(t.gg).Add(keyColumn, col).Done()
	grouped := ggtable.Remove(ggtable.GroupBy(keyed, keyColumn), keyColumn)

	parts := make([]*Table, 0, len(grouped.Tables()))
	for _, gid := range grouped.Tables() {
		part, err := wrap(grouped.Table(gid), 0)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}
