package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dayrally/internal/model"
	"dayrally/internal/service"
)

var moveCmd = &cobra.Command{
	Use:   "move [task-id] [up|down]",
	Short: "Swap a task with its neighbour in the same day",
	Long: `Swap a task with the task directly above or below it. Moving the first task
up or the last task down does nothing.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := service.ParseDirection(args[1])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			task, err := a.resolveRef(ctx, user, args[0])
			if err != nil {
				return err
			}
			if err := a.ordering.Move(ctx, user.ID, task.ID, dir); err != nil {
				return err
			}
			return printOverview(ctx, a, user)
		})
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder [task-id...]",
	Short: "Set the full order of one day's tasks",
	Long: `Rewrite the order of a day. Every task of that day must be listed exactly once.

Example:
  dayrally reorder --date 2024-03-06 3f2a9c1d 0b7e44aa 91c0d2ee`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			date, err := parseDateFlag(dateFlag, a.tasks.Today())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(args))
			for _, ref := range args {
				task, err := a.resolveRef(ctx, user, ref)
				if err != nil {
					return err
				}
				ids = append(ids, task.ID)
			}
			if err := a.ordering.Reorder(ctx, service.BucketKey{UserID: user.ID, Date: date}, ids); err != nil {
				return err
			}
			fmt.Printf("%s %d tasks on %s\n", successStyle.Render("↕️  Reordered"), len(ids), date)
			return nil
		})
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Renumber one day's tasks to close gaps left by deletions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			date, err := parseDateFlag(dateFlag, a.tasks.Today())
			if err != nil {
				return err
			}
			if err := a.ordering.Compact(ctx, service.BucketKey{UserID: user.ID, Date: date}); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", successStyle.Render("🧹 Compacted"), date)
			return nil
		})
	},
}

func init() {
	reorderCmd.Flags().StringP("date", "d", "", "day to reorder (defaults to today)")
	compactCmd.Flags().StringP("date", "d", "", "day to compact (defaults to today)")
}
