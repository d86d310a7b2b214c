// Package report provides the report command printing one view of a dataset
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/errors"
	"github.com/tphakala/birdobs/internal/loader"
	"github.com/tphakala/birdobs/internal/table"
	"github.com/tphakala/birdobs/internal/views"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// compareDataset selects the cross-dataset comparison
const compareDataset = "compare"

// Options selects what the report prints
type Options struct {
	Dataset string
	View    string
	Species []string
	Format  string
}

// Command creates and returns the report command
func Command(settings *conf.Settings) *cobra.Command {
	opts := Options{}
	var species string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a view of a dataset",
		Long: `Compute one insight view, the overview or the dataset comparison and print
its summary tables. Use --dataset compare for the comparison across all datasets.`,
		Example: `  birdobs report --dataset Forest --view temporal
  birdobs report --dataset Grassland --species "American Robin,Blue Jay" --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Species = splitSpecies(species)
			return run(cmd.Context(), cmd.OutOrStdout(), settings, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "Dataset name, or \"compare\"")
	cmd.Flags().StringVar(&opts.View, "view", views.Overview, "View id: overview, compare or one of the insight views")
	cmd.Flags().StringVar(&species, "species", "", "Comma-separated common names to filter by")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", FormatTable, "Output format: table, json, yaml")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func run(ctx context.Context, w io.Writer, settings *conf.Settings, opts Options) error {
	if err := validateFormat(opts.Format); err != nil {
		return err
	}

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer ds.Close()

	res, err := Compute(ctx, ds, views.NewEngine(settings.Views), opts)
	if err != nil {
		return err
	}
	return Write(w, res, opts.Format)
}

// Compute loads the requested dataset(s) from the store and derives the view
func Compute(ctx context.Context, ds datastore.Interface, engine *views.Engine, opts Options) (*views.Result, error) {
	l := loader.New(ds)

	if strings.EqualFold(opts.Dataset, compareDataset) || opts.View == views.Compare {
		var datasets []views.Dataset
		for _, name := range ds.Datasets() {
			t, err := l.Get(ctx, name)
			if err != nil {
				return nil, err
			}
			datasets = append(datasets, views.Dataset{Name: name, Table: t})
		}
		return engine.Compare(datasets, opts.Species)
	}

	t, err := l.Get(ctx, opts.Dataset)
	if err != nil {
		return nil, err
	}
	if opts.View == "" || opts.View == views.Overview {
		return engine.Overview(t, opts.Species)
	}
	return engine.Compute(opts.View, t, opts.Species)
}

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return errors.Newf("unsupported output format %q", format).
			Component("report").
			Category(errors.CategoryValidation).
			Context("format", format).
			Build()
	}
}

func splitSpecies(raw string) []string {
	var out []string
	for name := range strings.SplitSeq(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Write renders res in the given format
func Write(w io.Writer, res *views.Result, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		return writeYAML(w, res)
	case FormatTable:
		writeTables(w, res)
		return nil
	default:
		return validateFormat(format)
	}
}

// writeTables prints each summary table as a terminal table
func writeTables(w io.Writer, res *views.Result) {
	fmt.Fprintf(w, "%s\n\n", res.Title)

	if res.Metrics != nil {
		t := newWriter(w)
		t.AppendHeader(prettytable.Row{"Metric", "Value"})
		t.AppendRow(prettytable.Row{"Total observations", res.Metrics.TotalObservations})
		t.AppendRow(prettytable.Row{"Unique species", res.Metrics.UniqueSpecies})
		t.AppendRow(prettytable.Row{"Average temperature", formatCell(res.Metrics.AvgTemperature)})
		t.AppendRow(prettytable.Row{"Unique locations", res.Metrics.UniqueLocations})
		t.Render()
		writeDropped(w, res, "metrics")
		fmt.Fprintln(w)
	}

	for _, name := range res.TableNames() {
		tbl := res.Tables[name]
		fmt.Fprintf(w, "%s (%d rows)\n", name, tbl.Len())

		t := newWriter(w)
		header := make(prettytable.Row, 0, tbl.Width())
		for _, c := range tbl.Columns() {
			header = append(header, c)
		}
		t.AppendHeader(header)
		for r := range tbl.Len() {
			row := make(prettytable.Row, 0, tbl.Width())
			for _, v := range tbl.Row(r) {
				row = append(row, formatCell(v))
			}
			t.AppendRow(row)
		}
		t.Render()
		writeDropped(w, res, name)
		fmt.Fprintln(w)
	}

	for _, notice := range res.Notices {
		fmt.Fprintf(w, "note: %s\n", notice)
	}
}

func writeDropped(w io.Writer, res *views.Result, name string) {
	if rep, ok := res.Dropped[name]; ok {
		rep.Each(func(column, reason string, n int) {
			fmt.Fprintf(w, "  dropped %d %s value(s) in %s\n", n, reason, column)
		})
	}
}

func newWriter(w io.Writer) prettytable.Writer {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	// keep column names as stored
	t.Style().Format.Header = text.FormatDefault
	return t
}

// formatCell renders a cell for terminal output; missing values print empty
func formatCell(v any) string {
	switch x := table.JSONValue(v).(type) {
	case nil:
		return ""
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'f', 3, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

type yamlMetrics struct {
	TotalObservations int      `yaml:"total_observations"`
	UniqueSpecies     int      `yaml:"unique_species"`
	AvgTemperature    *float64 `yaml:"avg_temperature"`
	UniqueLocations   int      `yaml:"unique_locations"`
}

type yamlTable struct {
	Name    string                    `yaml:"name"`
	Dropped map[string]map[string]int `yaml:"dropped,omitempty"`
	Rows    *yaml.Node                `yaml:"rows"`
}

type yamlReport struct {
	View    string       `yaml:"view"`
	Title   string       `yaml:"title"`
	Metrics *yamlMetrics `yaml:"metrics,omitempty"`
	Notices []string     `yaml:"notices,omitempty"`
	Tables  []yamlTable  `yaml:"tables"`
}

// writeYAML prints tables as lists of records with keys in column order
func writeYAML(w io.Writer, res *views.Result) error {
	doc := yamlReport{View: res.View, Title: res.Title, Notices: res.Notices, Tables: []yamlTable{}}

	if m := res.Metrics; m != nil {
		doc.Metrics = &yamlMetrics{
			TotalObservations: m.TotalObservations,
			UniqueSpecies:     m.UniqueSpecies,
			UniqueLocations:   m.UniqueLocations,
		}
		if !math.IsNaN(m.AvgTemperature) {
			avg := m.AvgTemperature
			doc.Metrics.AvgTemperature = &avg
		}
	}

	for _, name := range res.TableNames() {
		rows, err := recordsNode(res.Tables[name])
		if err != nil {
			return fmt.Errorf("encoding table %s: %w", name, err)
		}
		yt := yamlTable{Name: name, Rows: rows}
		if rep, ok := res.Dropped[name]; ok {
			yt.Dropped = rep.Map()
		}
		doc.Tables = append(doc.Tables, yt)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func recordsNode(t *table.Table) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	columns := t.Columns()
	for r := range t.Len() {
		record := &yaml.Node{Kind: yaml.MappingNode}
		for j, c := range columns {
			var value yaml.Node
			if err := value.Encode(table.JSONValue(t.Cell(r, j))); err != nil {
				return nil, err
			}
			record.Content = append(record.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c},
				&value)
		}
		seq.Content = append(seq.Content, record)
	}
	return seq, nil
}
