package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Themolx/Privateer/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter configuration file with documented defaults.

By default the file is created at $XDG_CONFIG_HOME/privateer/config.yaml.
Use --config to pick another path and --force to overwrite an existing file.

Examples:
  privateer init
  privateer init --config ./privateer.yaml
  privateer init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	// The starter config opts into sidecars; the in-code default stays off so
	// a sidecar-free setup survives config reloads untouched.
	cfg.Library.WriteNFO = true

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit library.root and the kind size policies to match your setup")
	fmt.Println("  2. Check external tools with: privateer doctor")
	fmt.Println("  3. Queue artifacts with:      privateer enqueue --list wanted.json")
	fmt.Println("  4. Start acquiring with:      privateer run")
	return nil
}
