package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "filament-bench",
		Short: "Benchmark and inspect filament reactive runtimes",
		Long: `filament-bench measures the throughput of filament's reactive
primitives and can serve a live inspection endpoint for a synthetic
workload.

Subcommands:

  signals    write throughput for raw signals
  computed   recompute throughput for derived values
  effects    notification throughput for effects
  serve      run a synthetic workload behind the inspect server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		signalsCmd(),
		computedCmd(),
		effectsCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("filament-bench %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
