package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/birdobs/cmd/importcsv"
	"github.com/tphakala/birdobs/cmd/report"
	"github.com/tphakala/birdobs/cmd/serve"
	"github.com/tphakala/birdobs/cmd/views"
	"github.com/tphakala/birdobs/internal/buildinfo"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled from
// config file, environment and flags before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "birdobs",
		Short:         "Bird observation analytics service",
		Long:          `birdobs derives summary tables from bird survey datasets and serves them over a JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configPath); err != nil {
		// flags are static, a binding failure is a programming error
		panic(err)
	}

	serveCmd := serve.Command(settings, build)
	reportCmd := report.Command(settings)
	importCmd := importcsv.Command(settings)
	viewsCmd := views.Command()
	versionCmd := versionCommand(build)

	rootCmd.AddCommand(serveCmd, reportCmd, importCmd, viewsCmd, versionCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// static listings need no configuration
		if cmd.Name() == viewsCmd.Name() || cmd.Name() == versionCmd.Name() {
			return nil
		}
		// batch commands keep stdout for their output
		quiet := cmd.Name() != serveCmd.Name()
		return initialize(settings, configPath, quiet)
	}

	return rootCmd
}

// initialize loads the configuration into settings and installs the global logger
func initialize(settings *conf.Settings, configPath string, quiet bool) error {
	loaded, err := conf.LoadFile(configPath)
	if err != nil {
		return err
	}
	*settings = *loaded

	return setupLogging(settings, quiet)
}

// setupLogging replaces the fallback console logger with the configured one
func setupLogging(settings *conf.Settings, quiet bool) error {
	cfg := settings.Logging
	console := logger.ConsoleOutput{Enabled: true, Level: "info"}
	if cfg.Console != nil {
		console = *cfg.Console
	}

	switch {
	case settings.Debug:
		cfg.DefaultLevel = "debug"
		console.Level = "debug"
	case quiet:
		console.Level = "warn"
	}
	cfg.Console = &console

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configPath *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configPath, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/birdobs, /etc/birdobs)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("datastore", "", "Datastore type: sqlite, mysql or postgres")
	flags.String("sqlite-path", "", "Path to the SQLite database file")

	bindings := map[string]string{
		"debug":                 "debug",
		"datastore.type":        "datastore",
		"datastore.sqlite.path": "sqlite-path",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}

func versionCommand(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(build.String())
		},
	}
}
