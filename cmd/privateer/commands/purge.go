package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/cli/prompt"
	"github.com/Themolx/Privateer/internal/model"
)

var (
	purgeKind string
	purgeYes  bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge --kind <film|episode|short>",
	Short: "Delete job records of one kind",
	Long: `Delete every job record of the given kind from the queue. Artifacts on
disk are never touched; re-enqueueing a purged item whose artifact still
exists completes it without refetching.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeKind, "kind", "", "job kind to purge (required)")
	purgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "skip the confirmation prompt")
	_ = purgeCmd.MarkFlagRequired("kind")
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}
	kind, err := model.ParseJobKind(purgeKind)
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete all %s job records?", kind), purgeYes)
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
	removed, err := store.PurgeKind(kind)
	if err != nil {
		return err
	}

	fmt.Printf("purged %d %s job record(s); artifacts on disk are untouched\n", removed, kind)
	return nil
}
