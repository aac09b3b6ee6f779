// Package commands implements the privateer CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile   string
	outputFmt string
)

var rootCmd = &cobra.Command{
	Use:   "privateer",
	Short: "Privateer - personal media acquisition orchestrator",
	Long: `Privateer keeps a persistent queue of wanted media artifacts and drives
external fetch tools to acquire them: bounded concurrency, durable state,
retry with a lifetime attempt ceiling, and at-most-once source substitution
when a locator dies.

Typical session:
  privateer init
  privateer enqueue --list wanted.json
  privateer run --workers 2
  privateer status

Use "privateer [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with ctx wired through to every RunE, so a
// SIGINT lands in the engine as context cancellation.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/privateer/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json or yaml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(clearCompletedCmd)
	rootCmd.AddCommand(manageCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
