// Package importcsv provides the import command loading observation exports into the datastore
package importcsv

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/errors"
)

// Summary describes one imported file
type Summary struct {
	Source  string
	Dataset string
	Rows    int
	Ignored []string
	Coerced int
}

// Command creates and returns the import command
func Command(settings *conf.Settings) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "import --dataset NAME FILE [FILE...]",
		Short: "Load observation CSV exports into the datastore",
		Long: `Read CSV exports with a header row and append their rows to the dataset table.
The table is created on first import. Use - to read from standard input.`,
		Example: `  birdobs import --dataset Forest forest_2018.csv
  cat grassland.csv | birdobs import --dataset Grassland -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, settings, dataset, args)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset to import into")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, settings *conf.Settings, dataset string, files []string) error {
	canonical, ok := settings.HasDataset(dataset)
	if !ok {
		return errors.Newf("unknown dataset %q, configured datasets: %s", dataset, strings.Join(settings.Datasets, ", ")).
			Component("import").
			Category(errors.CategoryValidation).
			DatasetContext(dataset).
			Build()
	}

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer ds.Close()

	for _, path := range files {
		summary, err := importFile(ctx, ds, canonical, path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary)
	}
	return nil
}

func importFile(ctx context.Context, ds datastore.Interface, dataset, path string, stdin io.Reader) (*Summary, error) {
	if path == "-" {
		return Import(ctx, ds, dataset, "stdin", stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("import").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	return Import(ctx, ds, dataset, path, f)
}

// Import parses one CSV export from r and stores its rows under dataset
func Import(ctx context.Context, ds datastore.Interface, dataset, source string, r io.Reader) (*Summary, error) {
	res, err := datastore.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := ds.ImportObservations(ctx, dataset, res.Observations); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return &Summary{
		Source:  source,
		Dataset: dataset,
		Rows:    len(res.Observations),
		Ignored: res.Ignored,
		Coerced: res.Coerced,
	}, nil
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "%s: imported %d rows into %s\n", s.Source, s.Rows, s.Dataset)
	if len(s.Ignored) > 0 {
		fmt.Fprintf(w, "  ignored columns: %s\n", strings.Join(s.Ignored, ", "))
	}
	if s.Coerced > 0 {
		fmt.Fprintf(w, "  %d numeric value(s) could not be parsed and were stored as empty\n", s.Coerced)
	}
}
