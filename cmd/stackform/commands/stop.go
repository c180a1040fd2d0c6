package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/orchestrator"
)

func newStopCommand() *cobra.Command {
	var (
		nodes int
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "stop <workspace>",
		Short: "Halt the deployment's resources",
		Long: `Stop the running deployment without destroying its infrastructure.
Progress uses the calibrated line-count estimate since the stop playbook
has no plan summary to scale against.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			err = rt.orch.Stop(cmd.Context(), args[0], orchestrator.RunOptions{
				Nodes:       nodes,
				WaitForLock: wait,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s stopped\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "node count of the deployment")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a concurrent operation instead of failing")

	return cmd
}
