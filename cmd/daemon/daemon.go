package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/epaper-weather/internal/api"
	"github.com/tphakala/epaper-weather/internal/app"
	"github.com/tphakala/epaper-weather/internal/buildinfo"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability"
	"github.com/tphakala/epaper-weather/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Command creates the long-running refresh loop command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Refresh the display periodically",
		Long:  "Fetch, render, publish and notify every display.refresh interval until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().DurationVar(&settings.Display.Refresh, "refresh", viper.GetDuration("display.refresh"), "Interval between refresh cycles")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Serve /metrics and the JSON API")
	cmd.Flags().StringVar(&settings.Metrics.Listen, "listen", viper.GetString("metrics.listen"), "Listen address of the HTTP server")

	for key, flag := range map[string]string{
		"display.refresh": "refresh",
		"metrics.enabled": "metrics",
		"metrics.listen":  "listen",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(parent context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("daemon")
	bi := buildinfo.Current()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.InitSentry(&settings.Sentry, bi); err != nil {
		log.Warn("error telemetry disabled", logger.Error(err))
	}
	defer telemetry.Flush(2 * time.Second)

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	a, err := app.New(settings, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error during shutdown", logger.Error(err))
		}
	}()

	if settings.Metrics.Enabled {
		srv := api.New(settings.Metrics.Listen, a, api.WithMetrics(m), api.WithBuildInfo(bi))
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("HTTP server shutdown failed", logger.Error(err))
			}
		}()
	}

	log.Info("daemon started",
		logger.String("version", bi.GetVersion()),
		logger.String("location", settings.Location.Name),
		logger.Duration("refresh", settings.Display.Refresh))

	err = a.Run(ctx)
	log.Info("daemon stopped")
	return err
}
