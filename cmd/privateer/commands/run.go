package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/acquire"
	"github.com/Themolx/Privateer/internal/cli/output"
	"github.com/Themolx/Privateer/internal/config"
	"github.com/Themolx/Privateer/internal/queuestore"
)

var (
	runWorkers  int
	runMaxJobs  int
	runProgress bool
	runEcho     bool
	runDryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire queued artifacts",
	Long: `Dispatch pending and retrying jobs to the worker pool and drive them to
completion: fetch, verify, optionally shrink, and record the outcome.

The run holds the queue writer lock. Ctrl+C stops cleanly: in-flight fetches
are cancelled, partial files removed, and interrupted jobs re-armed as
pending for the next run.

Examples:
  privateer run
  privateer run --workers 4 --max-jobs 10
  privateer run --dry-run`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent fetch pipelines (default: config)")
	runCmd.Flags().IntVar(&runMaxJobs, "max-jobs", 0, "stop after dispatching this many jobs (0 = no limit)")
	runCmd.Flags().BoolVar(&runProgress, "progress", true, "live progress line / dashboard on a terminal")
	runCmd.Flags().BoolVar(&runEcho, "echo-output", false, "mirror raw fetch tool output instead of parsed progress")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the dispatch order without fetching or mutating state")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}

	if runDryRun {
		return printDispatchPlan(cfg)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	index, err := buildIndex(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("build existence index: %w", err)
	}

	engine := buildEngine(cfg, store, index, acquire.RunOptions{
		Workers:    runWorkers,
		MaxJobs:    runMaxJobs,
		Progress:   runProgress && stdoutIsTTY(),
		EchoOutput: runEcho,
	})

	res, err := engine.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, queuestore.ErrLocked) {
			return fmt.Errorf("%w; is another run in progress?", err)
		}
		return err
	}

	verdict := "run finished"
	if cmd.Context().Err() != nil {
		verdict = "run interrupted"
	}
	fmt.Printf("%s: dispatched %d, healed %d\n", verdict, res.Dispatched, res.Healed)
	fmt.Printf("queue: %d completed, %d retrying, %d failed, %d pending\n",
		res.Completed, res.Retrying, res.Failed, res.Pending)
	if res.EstimatedTotalBytes > 0 {
		fmt.Printf("library: %s of ~%s acquired\n",
			formatSize(res.EstimatedCompleteBytes), formatSize(res.EstimatedTotalBytes))
	}
	return nil
}

func printDispatchPlan(cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	q := store.Queue()
	ids := acquire.EligibleJobs(q)

	format, err := parsedFormat()
	if err != nil {
		return err
	}

	type planned struct {
		Position int    `json:"position"`
		ID       string `json:"id"`
		Status   string `json:"status"`
		Kind     string `json:"kind"`
		Name     string `json:"name"`
	}
	plan := make([]planned, 0, len(ids))
	table := output.NewTableData("#", "ID", "Status", "Kind", "Name")
	for i, id := range ids {
		job := q.JobByID(id)
		if job == nil {
			continue
		}
		plan = append(plan, planned{
			Position: i + 1,
			ID:       job.ID,
			Status:   string(job.Status),
			Kind:     string(job.Kind),
			Name:     job.DisplayName,
		})
		table.AddRow(fmt.Sprintf("%d", i+1), shortID(job.ID), string(job.Status), string(job.Kind), job.DisplayName)
	}
	return output.Print(os.Stdout, format, plan, table, "Nothing to dispatch.")
}

func stdoutIsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
