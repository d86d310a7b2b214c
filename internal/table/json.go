package table

import (
	"encoding/json"
	"math"
	"time"
)

// jsonTable is the wire shape of a table: {"columns": [...], "rows": [[...], ...]}
type jsonTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table as columns plus row arrays. NaN and infinite
// numbers become null, dates render as YYYY-MM-DD.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{
		Columns: t.columns,
		Rows:    make([][]any, t.rows),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}

	for i := range out.Rows {
		enc := make([]any, len(t.cols))
		for j, col := range t.cols {
			enc[j] = jsonValue(col[i])
		}
		out.Rows[i] = enc
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON. Numbers come back as float64.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in jsonTable
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded, err := New(in.Columns, in.Rows)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

// JSONValue returns the representation of a cell used in JSON and YAML output
func JSONValue(v any) any {
	return jsonValue(v)
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return jsonValue(float64(x))
	case time.Time:
		return FormatTime(x)
	default:
		return v
	}
}
