package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/progress"
)

func newStatusCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <workspace>",
		Short: "Show the workspace status",
		Long: `Report the externally visible workspace status. While an operation
holds the workspace lock the status is derived from the holder, e.g.
deploy_in_progress; a stale lock left by a dead process is reclaimed
first. The latest progress record is shown for in-flight operations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			status, state, err := rt.orch.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			records, err := progress.ReadLog(rt.orch.WorkspaceDir(args[0]))
			if err != nil {
				return err
			}

			if jsonOutput {
				out := map[string]interface{}{
					"workspace": args[0],
					"status":    status,
					"state":     state,
				}
				if len(records) > 0 {
					out["progress"] = records[len(records)-1]
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Printf("Workspace:  %s\n", args[0])
			fmt.Printf("Status:     %s\n", status)
			fmt.Printf("Provider:   %s\n", state.ProviderName)
			fmt.Printf("Version:    %s\n", state.TargetVersion)
			fmt.Printf("Platform:   %s\n", state.TargetPlatform)
			fmt.Printf("Updated:    %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
			if len(records) > 0 {
				last := records[len(records)-1]
				fmt.Printf("Progress:   %.1f%% (%s/%s: %s)\n",
					last.OverallPercent, last.Stage, last.Step, last.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}
