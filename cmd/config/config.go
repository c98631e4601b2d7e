package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/epaper-weather/internal/conf"
)

// Command creates the configuration management command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(), showCommand(settings))
	return cmd
}

func initCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				paths, err := conf.GetDefaultConfigPaths()
				if err != nil {
					return err
				}
				path = filepath.Join(paths[0], "config.yaml")
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "", "Destination path (default: first config search path)")
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			redacted := *settings
			redacted.MQTT.Password = redact(redacted.MQTT.Password)
			redacted.Weather.Netatmo.ClientSecret = redact(redacted.Weather.Netatmo.ClientSecret)
			redacted.Weather.Netatmo.RefreshToken = redact(redacted.Weather.Netatmo.RefreshToken)
			redacted.SunCalc.APIKey = redact(redacted.SunCalc.APIKey)
			redacted.Sentry.DSN = redact(redacted.Sentry.DSN)
			redacted.Cache.MySQL.Password = redact(redacted.Cache.MySQL.Password)
			redacted.Notify.URLs = nil

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(&redacted)
		},
	}
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
