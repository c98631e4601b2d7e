package testdata

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/weather"
)

// Command creates the command that manages the precipitation test override.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testdata",
		Short: "Inject or clear precipitation test data",
		Long:  "Override the precipitation fields of every snapshot until the injected data expires. Requires debug.allowtestdata.",
	}
	cmd.AddCommand(injectCommand(settings), clearCommand(settings), statusCommand(settings))
	return cmd
}

func injectCommand(settings *conf.Settings) *cobra.Command {
	var (
		precip      float64
		forecast    float64
		duration    time.Duration
		description string
	)

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Write a precipitation override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.Debug.AllowTestData {
				return errors.Newf("test data is disabled, set debug.allowtestdata").
					Component("cli").
					Category(errors.CategoryConfiguration).
					Build()
			}
			if precip < 0 || forecast < 0 {
				return errors.Newf("precipitation must not be negative").
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}
			if limit := settings.Debug.TestTimeout; limit > 0 && (duration <= 0 || duration > limit) {
				duration = limit
			}

			td := weather.TestData{
				Precipitation:           precip,
				ForecastPrecipitation2h: forecast,
				Description:             description,
			}
			if duration > 0 {
				td.ExpiresAt = time.Now().Add(duration).Truncate(time.Second)
			}
			if err := weather.InjectTestData(settings.Debug.TestDataFile, td); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Injected test data into %s\n", settings.Debug.TestDataFile)
			_, _ = fmt.Fprintf(w, "  precipitation: %.1f mm/h, next 2h: %.1f mm/h\n", precip, forecast)
			if !td.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintf(w, "  expires:       %s\n", td.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&precip, "precipitation", 1.5, "Current precipitation in mm/h")
	cmd.Flags().Float64Var(&forecast, "forecast", 2.0, "Forecast precipitation for the next two hours in mm/h")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Lifetime of the override (default and maximum: debug.testtimeout)")
	cmd.Flags().StringVar(&description, "description", "Test precipitation", "Description shown while the override is active")
	return cmd
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the precipitation override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := weather.ClearTestData(settings.Debug.TestDataFile); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Test data cleared")
			return nil
		},
	}
}

func statusCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active precipitation override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			td, ok, err := weather.LoadTestData(settings.Debug.TestDataFile, now)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !ok {
				_, _ = fmt.Fprintln(w, "No active test data")
				return nil
			}
			_, _ = fmt.Fprintf(w, "Active test data (%s)\n", td.Description)
			_, _ = fmt.Fprintf(w, "  precipitation: %.1f mm/h, next 2h: %.1f mm/h\n", td.Precipitation, td.ForecastPrecipitation2h)
			if td.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintln(w, "  expires:       never")
			} else {
				_, _ = fmt.Fprintf(w, "  expires in:    %s\n", td.ExpiresAt.Sub(now).Round(time.Second))
			}
			if !settings.Debug.AllowTestData {
				_, _ = fmt.Fprintln(w, "  note: ignored while debug.allowtestdata is off")
			}
			return nil
		},
	}
}
