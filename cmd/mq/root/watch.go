package root

import (
	"context"

	"github.com/spf13/cobra"

	"mealquest/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the TUI dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tr, _, cleanup, err := openTracker(ctx, !offline)
			if err != nil {
				return err
			}
			defer cleanup()

			if offline {
				tr.SetOnline(false)
			}
			return tui.RunDashboard(ctx, tr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Start in offline mode")

	return cmd
}
