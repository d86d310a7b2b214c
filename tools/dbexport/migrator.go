package main

import (
	"context"
	"fmt"
	"io"
	"time"

	prettytable "github.com/jedib0t/go-pretty/table"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/errors"
)

// Migrator copies datasets between two stores
type Migrator struct {
	cfg    Config
	out    io.Writer
	source datastore.Interface
	target datastore.Interface
	srcExp datastore.Exporter
	dstExp datastore.Exporter
}

// MigrationStats tracks migration statistics.
type MigrationStats struct {
	StartTime time.Time
	EndTime   time.Time
	Datasets  []DatasetStats
}

// DatasetStats tracks per-dataset migration statistics.
type DatasetStats struct {
	Name     string
	Skipped  bool  // source has no table for the dataset
	Cleared  int64 // target rows deleted by --clean
	Before   int64 // target rows present before the copy
	Copied   int64
	Batches  int
	Duration time.Duration
}

// Print outputs the migration statistics.
func (s *MigrationStats) Print(w io.Writer) {
	fmt.Fprintf(w, "\n=== Migration Summary ===\nDuration: %s\n\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))

	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row{"Dataset", "Cleared", "Existing", "Copied", "Batches", "Duration"})

	var total int64
	for _, ds := range s.Datasets {
		if ds.Skipped {
			t.AppendRow(prettytable.Row{ds.Name, "-", "-", "skipped", "-", "-"})
			continue
		}
		t.AppendRow(prettytable.Row{ds.Name, ds.Cleared, ds.Before, ds.Copied, ds.Batches, ds.Duration.Round(time.Millisecond)})
		total += ds.Copied
	}
	t.AppendFooter(prettytable.Row{"Total", "", "", total, "", ""})
	t.Render()
}

// NewMigrator opens both stores
func NewMigrator(cfg Config, source, target *conf.Settings, out io.Writer) (*Migrator, error) {
	m := &Migrator{cfg: cfg, out: out}

	var err error
	if m.source, m.srcExp, err = openStore(source); err != nil {
		return nil, fmt.Errorf("failed to open source store: %w", err)
	}
	if m.target, m.dstExp, err = openStore(target); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to open target store: %w", err)
	}

	fmt.Fprintln(out, "Database connections established successfully")
	return m, nil
}

func openStore(settings *conf.Settings) (datastore.Interface, datastore.Exporter, error) {
	ds, err := datastore.New(settings)
	if err != nil {
		return nil, nil, err
	}
	exp, ok := ds.(datastore.Exporter)
	if !ok {
		return nil, nil, fmt.Errorf("%s store does not support export", settings.Datastore.Type)
	}
	if err := ds.Open(); err != nil {
		return nil, nil, err
	}
	return ds, exp, nil
}

// Close closes both database connections.
func (m *Migrator) Close() {
	if m.source != nil {
		_ = m.source.Close()
	}
	if m.target != nil {
		_ = m.target.Close()
	}
}

// Verifier returns a verifier over the migrator's stores
func (m *Migrator) Verifier() *Verifier {
	return NewVerifier(m.srcExp, m.dstExp, m.out)
}

// Run copies every selected dataset in order
func (m *Migrator) Run(ctx context.Context) (*MigrationStats, error) {
	stats := &MigrationStats{StartTime: time.Now()}

	for _, name := range m.cfg.Datasets {
		dsStats, err := m.copyDataset(ctx, name)
		if err != nil {
			return stats, fmt.Errorf("failed to copy %s: %w", name, err)
		}
		stats.Datasets = append(stats.Datasets, dsStats)
	}

	stats.EndTime = time.Now()
	return stats, nil
}

func (m *Migrator) copyDataset(ctx context.Context, name string) (DatasetStats, error) {
	start := time.Now()
	stats := DatasetStats{Name: name}

	total, err := m.srcExp.CountObservations(ctx, name)
	if errors.IsNotFound(err) {
		fmt.Fprintf(m.out, "%s: no source table, skipping\n", name)
		stats.Skipped = true
		return stats, nil
	}
	if err != nil {
		return stats, err
	}

	// an empty import creates the target table
	if err := m.target.ImportObservations(ctx, name, nil); err != nil {
		return stats, err
	}
	if m.cfg.Clean {
		if stats.Cleared, err = m.dstExp.ClearObservations(ctx, name); err != nil {
			return stats, err
		}
	}
	if stats.Before, err = m.dstExp.CountObservations(ctx, name); err != nil {
		return stats, err
	}

	fmt.Fprintf(m.out, "Copying %s (%d rows)...\n", name, total)
	err = m.srcExp.ExportObservations(ctx, name, m.cfg.BatchSize, func(batch []datastore.Observation) error {
		if err := m.target.ImportObservations(ctx, name, batch); err != nil {
			return err
		}
		stats.Batches++
		stats.Copied += int64(len(batch))
		if m.cfg.Verbose || stats.Batches%10 == 0 {
			fmt.Fprintf(m.out, "  %s: %d/%d (%.1f%%)\n", name, stats.Copied, total,
				float64(stats.Copied)/float64(max(total, 1))*100)
		}
		return nil
	})
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}

	fmt.Fprintf(m.out, "  %s: completed (%d copied) in %s\n", name, stats.Copied, stats.Duration.Round(time.Millisecond))
	return stats, nil
}
