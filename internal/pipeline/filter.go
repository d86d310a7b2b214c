package pipeline

import (
	"github.com/tphakala/birdobs/internal/table"
)

// FilterBySpecies keeps the rows whose Common_Name is one of names. An empty
// names list returns t itself. Names that match nothing simply contribute no rows.
func FilterBySpecies(t *table.Table, names []string) (*table.Table, error) {
	return FilterByValues(t, ColCommonName, names)
}

// FilterByValues keeps the rows whose column value is one of values; empty values is the identity
func FilterByValues(t *table.Table, column string, values []string) (*table.Table, error) {
	if len(values) == 0 {
		return t, nil
	}
	if err := missingColumns(t, "filter", column); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(values))
	for _, v := range values {
		wanted[v] = struct{}{}
	}

	j, _ := t.ColumnIndex(column)
	return t.Filter(func(row []any) bool {
		if table.IsMissing(row[j]) {
			return false
		}
		_, ok := wanted[table.Key(row[j])]
		return ok
	}), nil
}
