package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the pending operation queue",
	}
	cmd.AddCommand(c.newQueueListCmd(), c.newQueueStatsCmd())
	return cmd
}

func (c *CLI) newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued operations in enqueue order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ops := a.queue.List()
			if len(ops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tPRIORITY\tRECORD\tRETRIES\tENQUEUED")
			for _, op := range ops {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					op.ID, op.Kind, op.Priority, op.RecordID,
					op.RetryCount, op.MaxRetries,
					op.EnqueuedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func (c *CLI) newQueueStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize queue contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			stats := a.queue.GetStats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total: %d\n", stats.Total)
			for kind, n := range stats.ByKind {
				fmt.Fprintf(out, "  kind %-8s %d\n", kind, n)
			}
			for prio, n := range stats.ByPriority {
				fmt.Fprintf(out, "  priority %-8s %d\n", prio, n)
			}
			if stats.Oldest != nil {
				fmt.Fprintf(out, "oldest: %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
