package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reopenCmd = &cobra.Command{
	Use:   "reopen <job-id>",
	Short: "Re-arm a failed job",
	Long: `Move a failed job back to pending with a fresh attempt budget. The failure
history is kept for diagnostics. Accepts the full job ID or an unambiguous
prefix as printed by status.`,
	Args: cobra.ExactArgs(1),
	RunE: runReopen,
}

func runReopen(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}

	lock, err := lockState(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	id, err := expandJobID(store.Queue(), args[0])
	if err != nil {
		return err
	}
	job, err := store.Reopen(id)
	if err != nil {
		return err
	}

	fmt.Printf("reopened %s  %s\n", shortID(job.ID), job.DisplayName)
	return nil
}
