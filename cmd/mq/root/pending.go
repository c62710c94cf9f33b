package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mealquest/internal/ui"
)

func newPendingCmd() *cobra.Command {
	var flush bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List updates queued for sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tr, _, cleanup, err := openTracker(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if flush {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Flushing…"))
				tr.Flush(ctx)
			}

			entries := tr.PendingUpdates()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("Nothing pending; all updates confirmed."))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconSync, fmt.Sprintf("%d pending update(s)", len(entries))))
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s %s %s\n",
					ui.Key.Render(string(e.Kind)),
					ui.Muted.Render(e.ID),
					ui.Dim.Render(e.EnqueuedAt.Local().Format("2006-01-02 15:04:05")))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flush, "flush", false, "Attempt to flush the queue first")

	return cmd
}
