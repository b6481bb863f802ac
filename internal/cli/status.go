package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			// sample once so IsOnline reflects the network, not a zero value
			a.monitor.Check(ctx)
			st := a.engine.Status()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "online:           %v\n", st.IsOnline)
			fmt.Fprintf(out, "pending requests: %d\n", st.PendingRequests)
			fmt.Fprintf(out, "sync in progress: %v\n", st.SyncInProgress)
			if st.LastSyncTime.IsZero() {
				fmt.Fprintf(out, "last sync:        never\n")
			} else {
				fmt.Fprintf(out, "last sync:        %s\n", st.LastSyncTime.Format("2006-01-02 15:04:05 MST"))
			}

			drafts, err := a.progress.ListPending(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "local drafts:     %d\n", len(drafts))
			return nil
		},
	}
}
