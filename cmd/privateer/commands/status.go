package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/cli/output"
	"github.com/Themolx/Privateer/internal/model"
)

var statusFailed bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counters and jobs",
	Long: `Show the queue counters and one row per job. With --failed, show only
failed jobs together with their full attempt history.

Examples:
  privateer status
  privateer status -o json
  privateer status --failed`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFailed, "failed", false, "show failed jobs with attempt history")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}
	format, err := parsedFormat()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	q := store.Queue()

	if statusFailed {
		return printFailedDetail(q, format)
	}

	if format != output.FormatTable {
		table := output.NewTableData()
		return output.Print(os.Stdout, format, q, table, "")
	}

	if err := output.KeyValueTable(os.Stdout, [][2]string{
		{"total", strconv.Itoa(q.Total)},
		{"pending", strconv.Itoa(q.Pending)},
		{"downloading", strconv.Itoa(q.Downloading)},
		{"retrying", strconv.Itoa(q.Retrying)},
		{"completed", strconv.Itoa(q.Completed)},
		{"failed", strconv.Itoa(q.Failed)},
	}); err != nil {
		return err
	}
	if len(q.Jobs) == 0 {
		return nil
	}

	fmt.Println()
	table := output.NewTableData("ID", "Status", "Kind", "Attempts", "Size", "Reason", "Name")
	for i := range q.Jobs {
		job := &q.Jobs[i]
		table.AddRow(
			shortID(job.ID),
			string(job.Status),
			string(job.Kind),
			strconv.Itoa(job.Attempts),
			formatSize(job.SizeBytes),
			job.Reason,
			job.DisplayName,
		)
	}
	return output.PrintTable(os.Stdout, table)
}

func printFailedDetail(q *model.Queue, format output.Format) error {
	failed := make([]model.Job, 0, q.Failed)
	for i := range q.Jobs {
		if q.Jobs[i].Status == model.StatusFailed {
			failed = append(failed, q.Jobs[i])
		}
	}

	if format != output.FormatTable {
		table := output.NewTableData()
		return output.Print(os.Stdout, format, failed, table, "")
	}

	if len(failed) == 0 {
		fmt.Println("No failed jobs.")
		return nil
	}
	for _, job := range failed {
		fmt.Printf("%s  %s  %s\n", shortID(job.ID), job.DisplayName, job.Reason)
		fmt.Printf("  locator: %s\n", job.SourceLocator)
		fmt.Printf("  attempts: %d", job.Attempts)
		if job.SelfHealed {
			fmt.Print("  (source was substituted once)")
		}
		fmt.Println()
		for _, rec := range job.AttemptHistory {
			fmt.Printf("  %s  %s\n", rec.Timestamp, rec.Message)
		}
		fmt.Println()
	}
	fmt.Printf("%d failed job(s); reopen with: privateer reopen <job-id>\n", len(failed))
	return nil
}
