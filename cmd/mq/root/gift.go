package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mealquest/internal/ui"
)

func newGiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gift",
		Short: "Claim the one-time welcome gift",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tr, _, cleanup, err := openTracker(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := tr.ClaimGift(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconGift+" Gift claimed!"))

			tr.Flush(ctx)
			return nil
		},
	}

	return cmd
}
