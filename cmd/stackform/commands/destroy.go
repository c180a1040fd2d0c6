package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/orchestrator"
)

func newDestroyCommand() *cobra.Command {
	var (
		nodes int
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "destroy <workspace>",
		Short: "Tear down the deployment's infrastructure",
		Long: `Destroy the provisioned infrastructure. The workspace directory and
its state document are preserved with a destroyed status so the run can
still be inspected afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			err = rt.orch.Destroy(cmd.Context(), args[0], orchestrator.RunOptions{
				Nodes:       nodes,
				WaitForLock: wait,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s destroyed\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "node count of the deployment")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a concurrent operation instead of failing")

	return cmd
}
