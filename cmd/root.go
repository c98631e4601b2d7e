package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/epaper-weather/cmd/cache"
	"github.com/tphakala/epaper-weather/cmd/config"
	"github.com/tphakala/epaper-weather/cmd/daemon"
	"github.com/tphakala/epaper-weather/cmd/fetch"
	"github.com/tphakala/epaper-weather/cmd/render"
	"github.com/tphakala/epaper-weather/cmd/suntimes"
	"github.com/tphakala/epaper-weather/cmd/testdata"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "epaper-weather",
		Short:         "Weather dashboard for e-paper displays",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		// flag binding only fails on programmer error
		panic(err)
	}

	rootCmd.AddCommand(
		fetch.Command(settings),
		suntimes.Command(settings),
		render.Command(settings),
		daemon.Command(settings),
		cache.Command(settings),
		config.Command(settings),
		testdata.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// flags were parsed into settings; re-check the values they may have changed
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		return initLogging(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&settings.Debug.Enabled, "debug", "d", viper.GetBool("debug.enabled"), "Enable debug output")
	pf.StringVar(&settings.Location.Name, "location", viper.GetString("location.name"), "Location name shown on the display")
	pf.Float64Var(&settings.Location.Latitude, "latitude", viper.GetFloat64("location.latitude"), "Latitude of the location")
	pf.Float64Var(&settings.Location.Longitude, "longitude", viper.GetFloat64("location.longitude"), "Longitude of the location")
	pf.StringVar(&settings.Location.Timezone, "timezone", viper.GetString("location.timezone"), "IANA time zone used for all displayed times")

	// flag names differ from the config keys, so bind each one explicitly
	bindings := map[string]string{
		"debug.enabled":      "debug",
		"location.name":      "location",
		"location.latitude":  "latitude",
		"location.longitude": "longitude",
		"location.timezone":  "timezone",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// initLogging replaces the console fallback logger with one built from the
// logging section. --debug lowers the default and console levels.
func initLogging(settings *conf.Settings) error {
	cfg := settings.Logging
	if settings.Debug.Enabled {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}
