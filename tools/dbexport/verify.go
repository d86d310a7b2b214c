package main

import (
	"context"
	"fmt"
	"io"

	prettytable "github.com/jedib0t/go-pretty/table"
	"github.com/tphakala/birdobs/internal/datastore"
)

// Verifier performs post-migration verification.
type Verifier struct {
	source datastore.Exporter
	target datastore.Exporter
	out    io.Writer
}

// NewVerifier creates a new Verifier.
func NewVerifier(source, target datastore.Exporter, out io.Writer) *Verifier {
	return &Verifier{source: source, target: target, out: out}
}

// Verify checks that every copied dataset gained exactly the source row count
func (v *Verifier) Verify(ctx context.Context, stats *MigrationStats) error {
	t := prettytable.NewWriter()
	t.SetOutputMirror(v.out)
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row{"Dataset", "Source", "Expected", "Target", "Match"})

	allMatch := true
	for _, ds := range stats.Datasets {
		if ds.Skipped {
			continue
		}

		sourceCount, err := v.source.CountObservations(ctx, ds.Name)
		if err != nil {
			return fmt.Errorf("failed to count source %s: %w", ds.Name, err)
		}
		targetCount, err := v.target.CountObservations(ctx, ds.Name)
		if err != nil {
			return fmt.Errorf("failed to count target %s: %w", ds.Name, err)
		}

		expected := ds.Before + sourceCount
		match := "✓"
		if targetCount != expected {
			match = "✗"
			allMatch = false
		}
		t.AppendRow(prettytable.Row{ds.Name, sourceCount, expected, targetCount, match})
	}
	t.Render()

	if !allMatch {
		return fmt.Errorf("record counts do not match")
	}
	return nil
}
