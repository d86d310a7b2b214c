// Package main provides a CLI tool for copying birdobs datasets from the
// SQLite store into MySQL, PostgreSQL or another SQLite file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tphakala/birdobs/internal/logger"
)

// Version information (can be set via ldflags during build)
var version = "dev"

func main() {
	err := rootCmd.Execute()
	_ = logger.Global().Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbexport",
	Short: "Copy birdobs datasets from SQLite to another store",
	Long: `A tool for moving birdobs observation datasets out of the embedded SQLite
store. Target connection settings come from config.yaml and the BIRDOBS_*
environment, so the same configuration used by the server can be reused.

Rows are appended to the target tables, which are created when missing.
Use --clean to empty them first.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExport,
}

var cfg Config

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to config.yaml")
	flags.StringVar(&cfg.SourcePath, "sqlite-path", "", "Source SQLite database (default: datastore.sqlite.path)")
	flags.StringVar(&cfg.TargetType, "target", "", "Target store: mysql, postgres or sqlite (default: datastore.type)")
	flags.StringVar(&cfg.TargetPath, "target-path", "", "Target SQLite database when --target sqlite")
	flags.StringSliceVar(&cfg.Datasets, "dataset", nil, "Dataset to copy, repeatable (default: all configured)")
	flags.IntVar(&cfg.BatchSize, "batch-size", 1000, "Number of rows per batch")
	flags.BoolVar(&cfg.Clean, "clean", false, "Delete target rows before copying (keeps table structure)")
	flags.BoolVar(&cfg.SkipVerify, "skip-verify", false, "Skip post-copy verification")
	flags.BoolVar(&cfg.Verbose, "verbose", false, "Print progress for every batch")
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, target, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %s\n", describe(source))
	fmt.Fprintf(out, "Target: %s\n", describe(target))

	migrator, err := NewMigrator(cfg, source, target, out)
	if err != nil {
		return fmt.Errorf("failed to initialize migrator: %w", err)
	}
	defer migrator.Close()

	stats, err := migrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	stats.Print(out)

	if !cfg.SkipVerify {
		fmt.Fprintln(out, "\n--- Verification ---")
		if err := migrator.Verifier().Verify(ctx, stats); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintln(out, "Verification passed!")
	}

	return nil
}
