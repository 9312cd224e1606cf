package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	app "github.com/valter-silva-au/ppm-baseline/internal"
	"github.com/valter-silva-au/ppm-baseline/internal/cli"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	basePath := app.ResolveBasePath()

	logLevel := new(slog.LevelVar)
	a, err := app.NewApp(basePath, logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing ppmb: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(a.Logger)

	err = cli.Execute()
	_ = a.Close()
	if errors.Is(err, cli.ErrChangesDetected) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
