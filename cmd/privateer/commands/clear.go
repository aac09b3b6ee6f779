package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/cli/prompt"
)

var clearYes bool

var clearCompletedCmd = &cobra.Command{
	Use:   "clear-completed",
	Short: "Delete completed job records",
	Long: `Drop completed job records from the queue to keep it small. The acquired
artifacts stay in the library; the existence index keeps protecting them
from re-acquisition.`,
	RunE: runClearCompleted,
}

func init() {
	clearCompletedCmd.Flags().BoolVar(&clearYes, "yes", false, "skip the confirmation prompt")
}

func runClearCompleted(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce("Delete all completed job records?", clearYes)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("Aborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
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
	removed, err := store.ClearCompleted()
	if err != nil {
		return err
	}

	fmt.Printf("cleared %d completed job record(s)\n", removed)
	return nil
}
