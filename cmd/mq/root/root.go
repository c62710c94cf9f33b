package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mealquest/internal/ui"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "mq",
	Short:         "MealQuest — offline-first habit progression tracker",
	Long:          "MealQuest tracks habit completions as XP, levels, and stars, syncing optimistically with the progress API and queueing updates while offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.mealquest.yaml)")

	rootCmd.AddCommand(
		newCompleteCmd(),
		newStatusCmd(),
		newGiftCmd(),
		newPendingCmd(),
		newWatchCmd(),
		newServeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
