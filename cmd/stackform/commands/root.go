package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// buildVersion holds the version string for telemetry identification.
	buildVersion string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackform",
		Short: "Stackform - Deployment Orchestration",
		Long: `Stackform drives long-running infrastructure deployments through external
provisioning and configuration-management tools while keeping the workspace
state crash-safe and the progress visible.

Features:
  - Workspace state with derived in-progress status
  - Single-writer locking with stale lock reclamation
  - Live weighted progress parsed from tool output
  - Calibrated estimates for opaque tool phases
  - Operation history and calibration capture`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newStopCommand())
	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newCalibrateCommand())

	return rootCmd
}
