package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		workspace string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished operations",
		Long: `List finished operations, newest first. Without --workspace every
workspace is included.`,
		Example: `  # Last ten operations on the prod workspace
  stackform history --workspace prod --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close(cmd.Context())

			if rt.hist == nil {
				return fmt.Errorf("history is disabled in the configuration")
			}

			entries, err := rt.hist.List(cmd.Context(), workspace, limit, offset)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No history entries")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tWORKSPACE\tOPERATION\tOUTCOME\tDURATION\tLINES")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0fs\t%d\n",
					e.StartedAt.Format("2006-01-02 15:04"),
					e.Workspace, e.Operation, e.Outcome,
					e.DurationSeconds, e.OutputLines)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "filter by workspace")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")

	return cmd
}
