package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/table"
)

// CSVResult is the outcome of reading an observation export
type CSVResult struct {
	Observations []Observation
	// Ignored lists header columns with no matching observation field
	Ignored []string
	// Coerced counts numeric cells that could not be parsed and were stored as NULL
	Coerced int
}

type fieldSetter func(o *Observation, value string) (coerced bool)

func stringField(set func(o *Observation, v string)) fieldSetter {
	return func(o *Observation, v string) bool {
		set(o, strings.TrimSpace(v))
		return false
	}
}

func floatField(set func(o *Observation, v *float64)) fieldSetter {
	return func(o *Observation, v string) bool {
		v = strings.TrimSpace(v)
		if v == "" {
			return false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return true
		}
		set(o, &f)
		return false
	}
}

var csvFields = map[string]fieldSetter{
	"admin_unit_code": stringField(func(o *Observation, v string) { o.AdminUnitCode = v }),
	"sub_unit_code":   stringField(func(o *Observation, v string) { o.SubUnitCode = v }),
	"site_name":       stringField(func(o *Observation, v string) { o.SiteName = v }),
	"plot_name":       stringField(func(o *Observation, v string) { o.PlotName = v }),
	"location_type":   stringField(func(o *Observation, v string) { o.LocationType = v }),
	"year": func(o *Observation, v string) bool {
		v = strings.TrimSpace(v)
		if v == "" {
			return false
		}
		y, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return true
		}
		o.Year = &y
		return false
	},
	"date": stringField(func(o *Observation, v string) {
		// normalise recognised layouts, keep anything else for the pipeline to report
		if ts, ok := table.ToTime(v); ok {
			v = ts.Format("2006-01-02")
		}
		o.Date = v
	}),
	"start_time":                  stringField(func(o *Observation, v string) { o.StartTime = v }),
	"end_time":                    stringField(func(o *Observation, v string) { o.EndTime = v }),
	"observer":                    stringField(func(o *Observation, v string) { o.Observer = v }),
	"visit":                       stringField(func(o *Observation, v string) { o.Visit = v }),
	"interval_length":             stringField(func(o *Observation, v string) { o.IntervalLength = v }),
	"id_method":                   stringField(func(o *Observation, v string) { o.IDMethod = v }),
	"distance":                    stringField(func(o *Observation, v string) { o.Distance = v }),
	"flyover_observed":            stringField(func(o *Observation, v string) { o.FlyoverObserved = v }),
	"sex":                         stringField(func(o *Observation, v string) { o.Sex = v }),
	"common_name":                 stringField(func(o *Observation, v string) { o.CommonName = v }),
	"scientific_name":             stringField(func(o *Observation, v string) { o.ScientificName = v }),
	"acceptedtncode":              stringField(func(o *Observation, v string) { o.AcceptedTNCode = v }),
	"npstaxoncode":                stringField(func(o *Observation, v string) { o.NPSTaxonCode = v }),
	"aou_code":                    stringField(func(o *Observation, v string) { o.AOUCode = v }),
	"pif_watchlist_status":        stringField(func(o *Observation, v string) { o.PIFWatchlistStatus = v }),
	"regional_stewardship_status": stringField(func(o *Observation, v string) { o.RegionalStewardshipStatus = v }),
	"temperature":                 floatField(func(o *Observation, v *float64) { o.Temperature = v }),
	"humidity":                    floatField(func(o *Observation, v *float64) { o.Humidity = v }),
	"sky":                         stringField(func(o *Observation, v string) { o.Sky = v }),
	"wind":                        stringField(func(o *Observation, v string) { o.Wind = v }),
	"disturbance":                 stringField(func(o *Observation, v string) { o.Disturbance = v }),
	"initial_three_min_cnt":       stringField(func(o *Observation, v string) { o.InitialThreeMinCnt = v }),
}

// ReadCSV parses an observation export with a header row. Header names are
// matched case-insensitively against the canonical column names.
func ReadCSV(r io.Reader) (*CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.Newf("csv input is empty").
				Component("datastore").
				Category(errors.CategoryFileParsing).
				Build()
		}
		return nil, errors.New(fmt.Errorf("failed to read csv header: %w", err)).
			Component("datastore").
			Category(errors.CategoryFileParsing).
			Build()
	}

	result := &CSVResult{}
	setters := make([]fieldSetter, len(header))
	hasName := false
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if set, ok := csvFields[key]; ok {
			setters[i] = set
			hasName = hasName || key == "common_name"
			continue
		}
		result.Ignored = append(result.Ignored, h)
	}
	if !hasName {
		return nil, errors.Newf("csv header has no Common_Name column").
			Component("datastore").
			Category(errors.CategoryMissingColumn).
			ColumnContext("Common_Name").
			Build()
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(fmt.Errorf("failed to read csv record: %w", err)).
				Component("datastore").
				Category(errors.CategoryFileParsing).
				Context("line", line).
				Build()
		}

		var o Observation
		for i, v := range record {
			if i >= len(setters) || setters[i] == nil {
				continue
			}
			if setters[i](&o, v) {
				result.Coerced++
			}
		}
		result.Observations = append(result.Observations, o)
	}
	return result, nil
}
