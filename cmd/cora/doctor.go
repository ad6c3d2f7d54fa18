package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errChecksFailed maps to exit code 1 in main; the status lines already
// said what failed, so no extra error output is printed for it.
var errChecksFailed = errors.New("diagnostics failed")

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run boot diagnostics and exit (0 when all checks pass)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			if runChecks(ctx, app) {
				return nil
			}
			return errChecksFailed
		},
	}
}

// runChecks prints one status line per subsystem and reports whether
// everything essential passed.
func runChecks(ctx context.Context, app *App) bool {
	ok := true

	app.Log.Status("config", true, app.Config.Path())
	app.Log.Status("tools", app.Registry.Len() > 0, fmt.Sprintf("%d registered", app.Registry.Len()))
	if app.Registry.Len() == 0 {
		ok = false
	}

	if app.Config.RelayConfigured() {
		app.Log.Status("relay", true, app.Config.GetString("relay.url"))
	} else {
		// Not configured is a state, not a failure
		app.Log.Status("relay", true, "not configured")
	}

	if app.Local.Available(ctx) {
		app.Log.Status("ollama", true, app.Local.Model())
	} else {
		app.Log.Status("ollama", false, "daemon not reachable")
		if app.Primary == app.Local {
			ok = false
		}
	}

	if app.Speaker.Available() {
		app.Log.Status("voice", true, app.Speaker.Engine())
	} else {
		// Voiceless installs still work
		app.Log.Status("voice", true, "no TTS engine found")
	}

	app.Log.Status("anchor", app.Config.GetString("anchor.id") != "", app.Config.GetString("anchor.id"))

	return ok
}
