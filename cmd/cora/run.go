package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"cora/internal/relay"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the anchor daemon (relay + voice worker)",
		RunE:  runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()

	runChecks(ctx, app)

	if !quiet && app.Speaker.Available() {
		app.Speaker.Start()
	}

	if err := app.Relay.Start(); err != nil {
		if errors.Is(err, relay.ErrNotConfigured) {
			app.Log.Warn("relay not configured, running local-only (use 'cora pair' to connect)")
		} else {
			return err
		}
	}

	app.Log.Info("cora is up (%d tools), press Ctrl+C to stop", app.Registry.Len())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	app.Log.Info("shutting down")
	return nil
}
