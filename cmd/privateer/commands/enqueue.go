package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/cli/output"
	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/library"
	"github.com/Themolx/Privateer/internal/logger"
	"github.com/Themolx/Privateer/internal/model"
)

var (
	enqueueList        string
	enqueueDefaultKind string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue --list wanted.json",
	Short: "Queue wanted artifacts from a list file",
	Long: `Read a wanted list and add one job per item. Items whose destination is
already tracked by the queue, or whose artifact already exists in the
library, are skipped.

The wanted list is a JSON document:

  {"items": [
    {"name": "Modern Times", "kind": "film", "year": 1936,
     "locator": "https://...", "declared_size_bytes": 1500000000},
    {"name": "Pilot", "kind": "episode", "series": "Show",
     "season": 1, "episode": 1, "locator": "https://..."}
  ]}`,
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueList, "list", "", "path to the wanted list (required)")
	enqueueCmd.Flags().StringVar(&enqueueDefaultKind, "kind", "film", "kind for items that do not carry one")
	_ = enqueueCmd.MarkFlagRequired("list")
}

type enqueueAction struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Action      string `json:"action"`
	Destination string `json:"destination"`
}

type enqueueSummary struct {
	Queued         int             `json:"queued"`
	AlreadyTracked int             `json:"already_tracked"`
	AlreadyOnDisk  int             `json:"already_on_disk"`
	Items          []enqueueAction `json:"items"`
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}
	format, err := parsedFormat()
	if err != nil {
		return err
	}

	list, err := library.LoadWantedList(enqueueList)
	if err != nil {
		return err
	}

	// Settle each item's kind and validate before touching any state, so a
	// bad list never half-enqueues.
	kinds := make([]model.JobKind, len(list.Items))
	for i, item := range list.Items {
		raw := string(item.Kind)
		if raw == "" {
			raw = enqueueDefaultKind
		}
		kind, err := model.ParseJobKind(raw)
		if err != nil {
			return fmt.Errorf("wanted list item %d (%s): %w", i, item.Name, err)
		}
		if err := library.ValidateWantedItem(item, kind); err != nil {
			return fmt.Errorf("wanted list item %d: %w", i, err)
		}
		kinds[i] = kind
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
	index, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("build existence index: %w", err)
	}

	summary := enqueueSummary{}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, item := range list.Items {
		item.Kind = kinds[i]
		destination := library.Destination(cfg.Library.Root, item)

		job := model.Job{
			ID:                uuid.NewString(),
			Kind:              kinds[i],
			DisplayName:       library.DisplayName(item),
			Series:            item.Series,
			Season:            item.Season,
			Episode:           item.Episode,
			Year:              item.Year,
			SourceLocator:     item.Locator,
			Destination:       destination,
			CreatedAt:         now,
			DeclaredSizeBytes: item.DeclaredSizeBytes,
		}

		action := "queued"
		switch {
		case store.Queue().JobByDestination(destination) != nil:
			action = "tracked"
			summary.AlreadyTracked++
		case artifactOnDisk(cfg, index, &job):
			action = "on disk"
			summary.AlreadyOnDisk++
		default:
			if err := model.TransitionJobStatus(&job, model.StatusPending, ""); err != nil {
				return err
			}
			added, err := store.Add(job)
			if err != nil {
				return fmt.Errorf("persist queue: %w", err)
			}
			if added {
				summary.Queued++
				logger.Debug("job queued", "id", job.ID, "name", job.DisplayName, "destination", destination)
			} else {
				// Two list items computed the same destination.
				action = "tracked"
				summary.AlreadyTracked++
			}
		}

		summary.Items = append(summary.Items, enqueueAction{
			Name:        job.DisplayName,
			Kind:        string(kinds[i]),
			Action:      action,
			Destination: destination,
		})
	}

	table := output.NewTableData("Name", "Kind", "Action", "Destination")
	for _, row := range summary.Items {
		table.AddRow(row.Name, row.Kind, row.Action, row.Destination)
	}
	if err := output.Print(os.Stdout, format, summary, table, ""); err != nil {
		return err
	}
	if format == output.FormatTable {
		fmt.Printf("\nqueued %d, skipped %d (%d tracked, %d on disk)\n",
			summary.Queued, summary.AlreadyTracked+summary.AlreadyOnDisk,
			summary.AlreadyTracked, summary.AlreadyOnDisk)
	}
	return nil
}

// artifactOnDisk mirrors the engine's startup check: the exact destination
// first, then the normalized index for renamed or reorganized artifacts.
func artifactOnDisk(cfg *config.Config, index *library.Index, job *model.Job) bool {
	policy := cfg.Kinds.For(job.Kind)
	if info, err := os.Stat(job.Destination); err == nil && !info.IsDir() && info.Size() > int64(policy.MinBytes) {
		return true
	}
	for _, key := range library.QueryKeys(job) {
		if index.Contains(key) {
			return true
		}
	}
	return false
}
