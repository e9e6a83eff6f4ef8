package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dayrally/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Mark a task as done",
	Long: `Mark a task as done. A recurring task spawns its next occurrence the next
time the planner is reconciled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], model.StatusDone, "✅ Done")
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip [task-id]",
	Short: "Skip a task for its day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], model.StatusSkipped, "⏭️  Skipped")
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen [task-id]",
	Aliases: []string{"undone"},
	Short:   "Move a resolved task back to todo",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(args[0], model.StatusTodo, "↩️  Reopened")
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			task, err := a.resolveRef(ctx, user, args[0])
			if err != nil {
				return err
			}
			if err := a.tasks.DeleteTask(ctx, user, task.ID); err != nil {
				return err
			}
			fmt.Printf("🗑  Deleted %s %s\n", idStyle.Render(task.ShortID()), task.Title)
			return nil
		})
	},
}

func setStatus(ref string, status model.Status, label string) error {
	return withApp(func(ctx context.Context, a *app, user *model.User) error {
		task, err := a.resolveRef(ctx, user, ref)
		if err != nil {
			return err
		}
		updated, err := a.tasks.SetStatus(ctx, user, task.ID, status)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", successStyle.Render(label), idStyle.Render(updated.ShortID()), updated.Title)
		return nil
	})
}
