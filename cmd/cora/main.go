package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	noColor bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cora",
		Short:         "Cora desktop AI assistant",
		Long:          "A personal desktop assistant: local tools, AI chat, and a mobile relay",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output (debug mode)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress voice output and confirmations")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newPairCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newToolCmd())
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
