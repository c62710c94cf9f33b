package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mealquest/internal/engine"
	"mealquest/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show progression, stars, and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			tr, cfg, cleanup, err := openTracker(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			p := tr.Progress()
			req := engine.Requirement(p.Level)
			stars := engine.StarsFor(p.Score)

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconMeal, "MealQuest Status"))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("User", cfg.UserID))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Level", fmt.Sprintf("%d  %s", p.Level, ui.XPBar(p.CurrentXP, req, 24))))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Score", fmt.Sprintf("%d  %s", p.Score, ui.Stars(stars, engine.MaxStars))))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Coins", fmt.Sprintf("%d %s", p.Coins, ui.IconCoin)))
			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Recipes unlocked", p.RecipesUnlocked))
			if next, ok := engine.NextStarThreshold(p.Score); ok {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Dim.Render(fmt.Sprintf("next star at %d score (%d to go)", next, next-p.Score)))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Gold.Render("all stars earned"))
			}

			if prof := tr.Profile(); prof.UserName != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "")
				fmt.Fprintln(cmd.OutOrStdout(), ui.H2.Render("Profile"))
				fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Name", prof.UserName))
				if prof.DietType != "" {
					fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Diet", prof.DietType))
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "")
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.IconSync, ui.SyncText(tr.PendingUpdateCount()))
			return nil
		},
	}

	return cmd
}
