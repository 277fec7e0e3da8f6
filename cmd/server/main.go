// Package main is the entry point for the patternplay API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-see/patternplay/internal/app"
	"github.com/james-see/patternplay/pkg/api"
	"github.com/james-see/patternplay/pkg/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Record output in memory instead of sending MIDI")
	flag.Parse()

	if err := run(*configPath, *listen, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listen string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	a, err := app.New(cfg, app.Options{DryRun: dryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting patternplay API server on %s...\n", cfg.Listen)
	fmt.Printf("Swagger docs available at http://localhost%s/swagger/index.html\n", cfg.Listen)

	return api.NewServer(a.Interp, a.Log.Named("api")).Serve(ctx, cfg.Listen)
}
