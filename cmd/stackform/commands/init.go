package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/orchestrator"
)

func newInitCommand() *cobra.Command {
	var (
		targetVersion  string
		targetPlatform string
		provider       string
	)

	cmd := &cobra.Command{
		Use:   "init <workspace>",
		Short: "Initialize a new deployment workspace",
		Long: `Create a workspace directory with its initial state document.

The workspace records which version and platform the deployment targets
and which provider it runs on. Initializing an existing workspace fails.`,
		Example: `  # Initialize a production workspace on AWS
  stackform init prod --provider aws --target-version 1.4.0 --platform linux`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			err = rt.orch.InitWorkspace(cmd.Context(), args[0], orchestrator.InitParams{
				TargetVersion:  targetVersion,
				TargetPlatform: targetPlatform,
				Provider:       provider,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s initialized at %s\n", args[0], rt.orch.WorkspaceDir(args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetVersion, "target-version", "", "deployment target version")
	cmd.Flags().StringVar(&targetPlatform, "platform", "linux", "deployment target platform")
	cmd.Flags().StringVar(&provider, "provider", "", "infrastructure provider name")
	cmd.MarkFlagRequired("provider")

	return cmd
}
