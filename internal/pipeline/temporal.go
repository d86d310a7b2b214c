package pipeline

import (
	"fmt"

	"github.com/tphakala/birdobs/internal/table"
)

// Bucket selects which calendar fields TemporalBucket derives
type Bucket int

const (
	// BucketMonth derives Year and Month
	BucketMonth Bucket = iota
	// BucketSeason derives Year, Month and Season
	BucketSeason
	// BucketDay derives Year, Month and Day
	BucketDay
)

// Season names
const (
	Winter = "Winter"
	Spring = "Spring"
	Summer = "Summer"
	Autumn = "Autumn"
)

// Seasons lists the seasons in calendar order starting with Winter
var Seasons = []string{Winter, Spring, Summer, Autumn}

// SeasonOf maps a month (1-12) to its meteorological season. Any other
// value is a programming error and panics.
func SeasonOf(month int) string {
	switch month {
	case 12, 1, 2:
		return Winter
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	case 9, 10, 11:
		return Autumn
	default:
		panic(fmt.Sprintf("pipeline: month %d out of range 1-12", month))
	}
}

// TemporalBucket derives integer Year and Month columns (plus Season or Day
// depending on bucket) from dateCol. Rows whose date is missing or cannot be
// parsed are excluded from the result and recorded in rep. An existing Year
// column is replaced in the derived table.
func TemporalBucket(t *table.Table, dateCol string, bucket Bucket, rep *Report) (*table.Table, error) {
	if err := missingColumns(t, "temporal_bucket", dateCol); err != nil {
		return nil, err
	}

	dj, _ := t.ColumnIndex(dateCol)

	var (
		keep   []int
		years  []any
		months []any
		extra  []any
	)

	for r := range t.Len() {
		v := t.Cell(r, dj)
		if table.IsMissing(v) {
			rep.Add(dateCol, ReasonMissing, 1)
			continue
		}
		ts, ok := table.ToTime(v)
		if !ok {
			rep.Add(dateCol, ReasonUnparseableDate, 1)
			continue
		}

		keep = append(keep, r)
		years = append(years, int64(ts.Year()))
		months = append(months, int64(ts.Month()))
		switch bucket {
		case BucketSeason:
			extra = append(extra, SeasonOf(int(ts.Month())))
		case BucketDay:
			extra = append(extra, int64(ts.Day()))
		}
	}

	out := t.Select(keep)
	out, err := out.WithColumn(ColYear, years)
	if err != nil {
		return nil, err
	}
	if out, err = out.WithColumn(ColMonth, months); err != nil {
		return nil, err
	}

	switch bucket {
	case BucketSeason:
		return out.WithColumn(ColSeason, extra)
	case BucketDay:
		return out.WithColumn(ColDay, extra)
	default:
		return out, nil
	}
}
