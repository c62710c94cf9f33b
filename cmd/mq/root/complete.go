package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mealquest/internal/engine"
	"mealquest/internal/ui"
)

func newCompleteCmd() *cobra.Command {
	var streak int
	var score int
	var coins int
	var xp int
	var taskID string

	cmd := &cobra.Command{
		Use:   "complete <task-type>",
		Short: "Record a completed task (meal, shopping, cooking, exercise, water, daily-checkin, ai-chat)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("task type is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			taskType := engine.ParseTaskType(args[0])

			tr, _, cleanup, err := openTracker(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := tr.CompleteTask(engine.TaskRewardSpec{
				TaskID:      taskID,
				Type:        taskType,
				ScoreReward: score,
				CoinReward:  coins,
				XPReward:    xp,
			}, streak)
			if err != nil {
				return err
			}

			awarded := engine.RewardForSpec(engine.TaskRewardSpec{Type: taskType, XPReward: xp}, streak)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
				ui.TaskIcon(string(taskType)),
				ui.Good.Render("Completed "+string(taskType)),
				ui.Muted.Render(fmt.Sprintf("(+%d XP, streak %d)", awarded, streak)))
			for _, ev := range res.Events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					ui.IconBolt, ui.BadgeLevelUp, ui.Gold.Render(fmt.Sprintf("level %d", ev.NewLevel)))
			}
			if res.BonusCoins > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Bonus coins", fmt.Sprintf("%d %s", res.BonusCoins, ui.IconCoin)))
			}

			// Push before exiting; anything that fails transiently stays
			// journaled for the next invocation.
			tr.Flush(ctx)
			if n := tr.PendingUpdateCount(); n > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(fmt.Sprintf("%s %d update(s) pending sync", ui.IconSync, n)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&streak, "streak", "s", 0, "Current streak length in days")
	cmd.Flags().IntVar(&score, "score", 0, "Score reward for this task")
	cmd.Flags().IntVar(&coins, "coins", 0, "Coin reward for this task")
	cmd.Flags().IntVar(&xp, "xp", 0, "Base XP override (defaults to the task type's table value)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Optional task identifier")

	return cmd
}
