package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldvisor/auditsync/internal/common"
)

func (c *CLI) newDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run one drain cycle against the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Drain(ctx)
			if err != nil {
				if errors.Is(err, common.ErrOffline) {
					return fmt.Errorf("backend unreachable, drain skipped")
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "synced:    %d\n", res.Synced)
			fmt.Fprintf(out, "failed:    %d\n", res.Failed)
			fmt.Fprintf(out, "completed: %d\n", res.Completed)
			fmt.Fprintf(out, "remaining: %d\n", a.queue.Len())
			for _, e := range res.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			return nil
		},
	}
}
