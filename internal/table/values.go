package table

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when a text cell is read as a date
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"1/2/2006",
}

// IsMissing reports whether v counts as a missing value: nil, NaN or blank text
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// ToFloat coerces v to a finite number. Text is parsed after trimming;
// anything that does not parse, infinities and missing values report false.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToTime coerces v to a time. Text is tried against the supported date layouts.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Key returns a canonical string for v, used to group and compare cells of mixed representation.
// Integral floats render without a fraction so 3 and 3.0 share a key.
func Key(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return FormatTime(x)
	default:
		if f, ok := ToFloat(x); ok {
			return Key(f)
		}
		return ""
	}
}

// FormatTime renders dates without a clock component and timestamps as RFC 3339
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// kind ranks the classes of cell values for ordering
const (
	kindNumber = iota
	kindTime
	kindOther
	kindMissing
)

func kind(v any) int {
	if IsMissing(v) {
		return kindMissing
	}
	if _, ok := numeric(v); ok {
		return kindNumber
	}
	if _, ok := v.(time.Time); ok {
		return kindTime
	}
	return kindOther
}

// SameKind reports whether a and b belong to the same value class. Reversing
// an ordering only applies within a class; across classes numbers come
// first, then times, then text, with missing values last.
func SameKind(a, b any) bool {
	return kind(a) == kind(b)
}

// Compare orders two cells: numbers, then times, then everything else by Key,
// with missing values last.
func Compare(a, b any) int {
	ka, kb := kind(a), kind(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}

	switch ka {
	case kindMissing:
		return 0
	case kindNumber:
		af, _ := numeric(a)
		bf, _ := numeric(b)
		return cmp.Compare(af, bf)
	case kindTime:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(Key(a), Key(b))
	}
}

// numeric is ToFloat restricted to values that are already numbers; text does not count
func numeric(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return ToFloat(v)
}
