package suntimes

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/epaper-weather/internal/app"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
)

const dateLayout = "2006-01-02"

// Command creates the command that prints sunrise and sunset for a date.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "suntimes [date]",
		Short: "Print sun times for a date (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, nil, app.WithOutputs())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			date := a.Now()
			if len(args) == 1 {
				if date, err = time.ParseInLocation(dateLayout, args[0], a.Location()); err != nil {
					return errors.Newf("invalid date %q, expected YYYY-MM-DD", args[0]).
						Component("cli").
						Category(errors.CategoryValidation).
						Build()
				}
			}

			st := a.SunTimes(cmd.Context(), date)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Location:  %s (%.4f, %.4f)\n", settings.Location.Name, settings.Location.Latitude, settings.Location.Longitude)
			_, _ = fmt.Fprintf(w, "Date:      %s\n", date.Format(dateLayout))
			_, _ = fmt.Fprintf(w, "Sunrise:   %s\n", st.Sunrise.In(a.Location()).Format("15:04"))
			_, _ = fmt.Fprintf(w, "Sunset:    %s\n", st.Sunset.In(a.Location()).Format("15:04"))
			_, _ = fmt.Fprintf(w, "Daylight:  %s\n", st.DaylightDuration)
			if !st.CivilDawn.IsZero() {
				_, _ = fmt.Fprintf(w, "Dawn/dusk: %s / %s\n",
					st.CivilDawn.In(a.Location()).Format("15:04"),
					st.CivilDusk.In(a.Location()).Format("15:04"))
			}
			_, _ = fmt.Fprintf(w, "Source:    %s", st.Source)
			if st.Cached {
				_, _ = fmt.Fprint(w, " (cached)")
			}
			_, _ = fmt.Fprintln(w)
			return nil
		},
	}
}
