package fetch

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tphakala/epaper-weather/internal/app"
	"github.com/tphakala/epaper-weather/internal/conf"
)

// Command creates the command that prints the merged weather snapshot.
func Command(settings *conf.Settings) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch current weather and print it as JSON",
		Long:  "Fetch observations, forecast and sun times once and print the merged snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, nil, app.WithOutputs())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			snap := a.Fetch(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(snap)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")
	return cmd
}
