package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/cli/output"
	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/queuestore"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run dependency and storage preflight checks",
	Long: `Check that the configured external tools are on PATH and that the state
directory and library root are writable. Exits non-zero when any check fails.`,
	RunE: runDoctor,
}

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorReport struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := setupRuntime()
	if err != nil {
		return err
	}
	format, err := parsedFormat()
	if err != nil {
		return err
	}

	report := doctorReport{OK: true}
	for _, st := range fetch.CheckDependencies(cfg.Fetch.Tool, cfg.Transform.FFmpeg, cfg.Resolve.Tool) {
		msg := st.Name + " found at " + st.Path
		if !st.Found {
			msg = st.Name + " not found on PATH"
		}
		report.Checks = append(report.Checks, doctorCheck{
			Name:    "dependency:" + st.Name,
			OK:      st.Found,
			Message: msg,
		})
	}

	stateOK, stateMsg := writableDir(cfg.Storage.StateDir)
	report.Checks = append(report.Checks, doctorCheck{Name: "directory:state", OK: stateOK, Message: stateMsg})

	libOK, libMsg := writableDir(cfg.Library.Root)
	report.Checks = append(report.Checks, doctorCheck{Name: "directory:library", OK: libOK, Message: libMsg})

	failed := 0
	for _, c := range report.Checks {
		if !c.OK {
			report.OK = false
			failed++
		}
	}

	table := output.NewTableData("Check", "OK", "Detail")
	for _, c := range report.Checks {
		ok := "yes"
		if !c.OK {
			ok = "NO"
		}
		table.AddRow(c.Name, ok, c.Message)
	}
	if err := output.Print(os.Stdout, format, report, table, ""); err != nil {
		return err
	}

	if !report.OK {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

// writableDir creates the directory if needed and proves writability with a
// throwaway file.
func writableDir(path string) (bool, string) {
	if path == "" {
		return false, "empty path"
	}
	if err := queuestore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	f, err := os.CreateTemp(path, "privateer-check-*.tmp")
	if err != nil {
		return false, err.Error()
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true, "writable"
}
