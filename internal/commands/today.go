package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dayrally/internal/model"
)

var todayCmd = &cobra.Command{
	Use:     "today",
	Aliases: []string{"ls", "list"},
	Short:   "Show today's tasks, rolled-over tasks and what is coming up",
	Long: `Reconcile the planner and print the overview. Unfinished tasks from past
days are moved to today and resolved recurring tasks spawn their next occurrence
before anything is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			return printOverview(ctx, a, user)
		})
	},
}

func printOverview(ctx context.Context, a *app, user *model.User) error {
	now := a.tasks.Today()
	overview, err := a.planner.GetOverview(ctx, user.ID, now)
	if err != nil {
		return err
	}
	names, err := a.categories.Names(ctx, user)
	if err != nil {
		return err
	}
	fmt.Print(renderOverview(overview, names, now))
	return nil
}
