package main

import (
	"fmt"
	"os"

	"github.com/tphakala/epaper-weather/cmd"
	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/logger"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	err = rootCmd.Execute()

	if cerr := logger.Global().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error closing log file: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
