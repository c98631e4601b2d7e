package cache

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/epaper-weather/internal/app"
	"github.com/tphakala/epaper-weather/internal/conf"
)

// Command creates the cache maintenance command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the sun-time and icon caches",
	}
	cmd.AddCommand(statsCommand(settings), clearCommand(settings))
	return cmd
}

func statsCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, nil, app.WithOutputs())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			st, icons := a.CacheStats()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Sun-time cache (%s)\n", st.Backend)
			_, _ = fmt.Fprintf(w, "  entries: %d\n", st.Entries)
			_, _ = fmt.Fprintf(w, "  valid:   %d\n", st.Valid)
			_, _ = fmt.Fprintf(w, "  expired: %d\n", st.Expired)
			if settings.Cache.Backend == "file" {
				_, _ = fmt.Fprintf(w, "  file:    %s (exists: %t)\n", settings.Cache.Path, st.FileExists)
			}
			_, _ = fmt.Fprintf(w, "Icon cache\n  entries: %d\n", icons)
			return nil
		},
	}
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached sun-time entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, nil, app.WithOutputs())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.ClearCaches(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Caches cleared")
			return nil
		},
	}
}
