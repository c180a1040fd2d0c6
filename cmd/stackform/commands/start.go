package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/orchestrator"
)

func newStartCommand() *cobra.Command {
	var (
		nodes int
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "start <workspace>",
		Short: "Bring stopped resources back up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			err = rt.orch.Start(cmd.Context(), args[0], orchestrator.RunOptions{
				Nodes:       nodes,
				WaitForLock: wait,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s started\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "node count of the deployment")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a concurrent operation instead of failing")

	return cmd
}
