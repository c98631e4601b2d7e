package render

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/epaper-weather/internal/app"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
)

// Command creates the command that renders and pushes a single frame.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch weather and render one frame",
		Long:  "Fetch weather, render the dashboard and push it to the enabled outputs regardless of change detection.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.Output.PNG.Enabled && !settings.Output.EPaper.Enabled {
				return errors.Newf("no output enabled, use --png or --epaper").
					Component("cli").
					Category(errors.CategoryConfiguration).
					Build()
			}

			a, err := app.New(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.Cycle(cmd.Context(), true)
			if res == nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Rendered %s at %s\n", res.Frame.RunID, res.Frame.RenderedAt.Format("15:04:05"))
			_, _ = fmt.Fprintf(w, "Modules:  %s\n", strings.Join(res.Frame.Modules, ", "))
			if len(res.Frame.Failed) > 0 {
				_, _ = fmt.Fprintf(w, "Fallback: %s\n", strings.Join(res.Frame.Failed, ", "))
			}
			if settings.Output.PNG.Enabled && res.Pushed {
				_, _ = fmt.Fprintf(w, "PNG:      %s\n", settings.Output.PNG.Path)
			}
			return err
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Output.PNG.Enabled, "png", viper.GetBool("output.png.enabled"), "Write the frame to a PNG file")
	cmd.Flags().StringVar(&settings.Output.PNG.Path, "png-path", viper.GetString("output.png.path"), "Path of the PNG file")
	cmd.Flags().BoolVar(&settings.Output.EPaper.Enabled, "epaper", viper.GetBool("output.epaper.enabled"), "Push the frame to the e-paper panel")

	for key, flag := range map[string]string{
		"output.png.enabled":    "png",
		"output.png.path":       "png-path",
		"output.epaper.enabled": "epaper",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
