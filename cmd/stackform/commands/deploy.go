package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/orchestrator"
)

func newDeployCommand() *cobra.Command {
	var (
		nodes int
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "deploy <workspace>",
		Short: "Provision and configure the deployment",
		Long: `Run the full deployment: provisioner init, plan, and apply, an
optional readiness wait, then the configuration playbook.

Progress is parsed live from the tools' own output and written to the
workspace progress log; the raw output passes through unmodified. The
workspace is locked for the duration and a crash or interrupt records a
deploy_failed status before the lock is released.`,
		Example: `  # Deploy a three node cluster
  stackform deploy prod --nodes 3

  # Wait for a concurrent operation to finish first
  stackform deploy prod --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			err = rt.orch.Deploy(cmd.Context(), args[0], orchestrator.RunOptions{
				Nodes:       nodes,
				WaitForLock: wait,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s deployed\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "node count of the deployment")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a concurrent operation instead of failing")

	return cmd
}
