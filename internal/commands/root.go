package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "dayrally",
	Short: "A daily planner with rollover, recurring tasks and timers",
	Long: `dayrally keeps a per-day task list. Unfinished tasks roll over to today,
recurring tasks spawn their next occurrence once resolved, and every task can
carry a countdown timer. Run "dayrally bot" for the Telegram front end.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dayrally %s (commit %s, built %s)\n", version, commit, date)
	},
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(versionCmd)
}
