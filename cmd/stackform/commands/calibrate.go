package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackform/stackform/pkg/calibration"
)

func newCalibrateCommand() *cobra.Command {
	var (
		provider  string
		operation string
		nodes     int
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Inspect calibration samples and estimates",
		Long: `List the recorded calibration samples for a provider and operation
and show the estimate the progress engine would use for a given node
count. Samples are captured automatically after successful runs.`,
		Example: `  # What would a three node AWS deploy look like?
  stackform calibrate --provider aws --operation deploy --nodes 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			estimator := calibration.NewEstimator(rt.cfg.Workspace.CalibrationDir, rt.tel.Logger)

			samples, err := estimator.Samples(provider, operation)
			if err != nil {
				return err
			}

			if len(samples) == 0 {
				fmt.Println("No samples recorded")
			} else {
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NODES\tLINES\tDURATION\tRECORDED")
				for _, s := range samples {
					fmt.Fprintf(w, "%d\t%d\t%s\t%s\n",
						s.Nodes, s.TotalLines, s.Duration,
						s.RecordedAt.Format("2006-01-02 15:04"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			estimate, err := estimator.Estimate(provider, operation, nodes)
			if err != nil {
				return err
			}

			source := "defaults"
			if estimate.Calibrated {
				source = "calibrated"
			}
			fmt.Printf("\nEstimate for %d node(s): %d lines, %s (%s)\n",
				nodes, estimate.Lines, estimate.Duration, source)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "infrastructure provider name")
	cmd.Flags().StringVar(&operation, "operation", "deploy", "operation to estimate")
	cmd.Flags().IntVar(&nodes, "nodes", 1, "node count to estimate for")
	cmd.MarkFlagRequired("provider")

	return cmd
}
