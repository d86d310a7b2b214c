// Package serve provides the serve command running the HTTP API
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/birdobs/internal/api"
	"github.com/tphakala/birdobs/internal/buildinfo"
	"github.com/tphakala/birdobs/internal/conf"
	"github.com/tphakala/birdobs/internal/datastore"
	"github.com/tphakala/birdobs/internal/logger"
	"github.com/tphakala/birdobs/internal/observability"
	"github.com/tphakala/birdobs/internal/observability/metrics"
	"github.com/tphakala/birdobs/internal/telemetry"
)

// telemetryFlushTimeout bounds how long pending Sentry events may delay exit
const telemetryFlushTimeout = 2 * time.Second

// metricsSetter is implemented by the gorm-backed stores
type metricsSetter interface {
	SetMetrics(m *metrics.DatastoreMetrics)
}

// Command creates and returns the serve command
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP API",
		Long:  `Serve the dataset views, overview and comparison endpoints under /api/v2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, build)
		},
	}

	cmd.Flags().StringP("port", "p", "", "HTTP port to listen on")
	if err := viper.BindPFlag("webserver.port", cmd.Flags().Lookup("port")); err != nil {
		panic(fmt.Sprintf("error binding port flag: %v", err))
	}

	return cmd
}

func run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("serve")

	enabled, err := telemetry.Init(settings, build.GetVersion())
	if err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}
	if enabled {
		defer telemetry.Shutdown(telemetryFlushTimeout)
	}

	var m *observability.Metrics
	if settings.Metrics.Enabled {
		if m, err = observability.NewMetrics(); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if setter, ok := ds.(metricsSetter); ok && m != nil {
		setter.SetMetrics(m.Datastore)
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Error("failed to close datastore", logger.Error(err))
		}
	}()

	opts := []api.ServerOption{
		api.WithDataStore(ds),
		api.WithVersion(build.GetVersion()),
	}
	if m != nil {
		opts = append(opts, api.WithMetrics(m))
	}

	server, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	log.Info("birdobs starting",
		logger.String("version", build.GetVersion()),
		logger.String("datastore", settings.Datastore.Type),
		logger.Strings("datasets", settings.Datasets))

	return server.Run(ctx)
}
