package main

import (
	"context"
	"fmt"
	"time"

	"cora/internal/relay"

	"github.com/spf13/cobra"
)

func newPairCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Generate a pairing code and wait for a mobile device to claim it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPair(timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for a claim")
	return cmd
}

func runPair(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	app, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Config.RelayConfigured() {
		return fmt.Errorf("relay not configured: set relay.url and relay.anon_key first (cora config set)")
	}

	pairing, qrURL, err := app.Pairing.GenerateCode(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\n  Pairing code:  %s\n", pairing.Code)
	fmt.Printf("  Scan or open:  %s\n", qrURL)
	fmt.Printf("  Code expires:  %s\n\n", pairing.ExpiresAt.Local().Format("15:04:05"))
	fmt.Println("Waiting for a device to claim the code...")

	// Poll blocks until a terminal status or the timeout cancels ctx
	done := make(chan relay.PairStatus, 1)
	app.Pairing.Poll(ctx, pairing.Code, 2*time.Second, func(s relay.PairStatus) {
		done <- s
	})

	select {
	case status := <-done:
		if status.Status == "claimed" {
			fmt.Printf("Paired with %s\n", status.ClaimedBy)
			return nil
		}
		return fmt.Errorf("pairing code expired before it was claimed")
	default:
		return fmt.Errorf("pairing timed out")
	}
}
