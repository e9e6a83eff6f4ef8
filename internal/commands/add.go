package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dayrally/internal/model"
	"dayrally/internal/service"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a task to a day. Without --date the task goes to today, after the tasks
already planned there.

Examples:
  dayrally add "Write report"
  dayrally add "Standup" --repeat daily --timer 15
  dayrally add "Gym" --repeat weekly --on Mon,Wed,Fri
  dayrally add "Pay rent" --date 2025-01-31 --repeat monthly`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		dateFlag, _ := flags.GetString("date")
		notes, _ := flags.GetString("notes")
		category, _ := flags.GetString("category")
		repeat, _ := flags.GetString("repeat")
		every, _ := flags.GetInt("every")
		on, _ := flags.GetString("on")
		minutes, _ := flags.GetInt("timer")

		input := service.TaskInput{
			Title:    strings.Join(args, " "),
			Notes:    notes,
			Category: category,
		}
		if repeat != "" {
			kind, err := parseRepeat(repeat)
			if err != nil {
				return err
			}
			input.IsRecurring = true
			input.RecurrenceType = kind
			input.RecurrenceInterval = every
			input.RecurrenceWeekdays = on
		}
		if flags.Changed("timer") {
			input.TimerEnabled = true
			input.TimerMinutes = minutes
		}

		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			date, err := parseDateFlag(dateFlag, a.tasks.Today())
			if err != nil {
				return err
			}
			input.TargetDate = date

			task, err := a.tasks.CreateTask(ctx, user, input)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s on %s\n", successStyle.Render("✅ Added"), idStyle.Render(task.ShortID()), task.Title, task.TargetDate)
			if task.CategoryID != nil {
				if category, err := a.categories.Get(ctx, user, *task.CategoryID); err == nil {
					fmt.Printf("   🏷  %s\n", category.Name)
				}
			}
			if task.IsRecurring {
				fmt.Printf("   🔁 %s\n", describeRepeat(*task))
			}
			if task.TimerEnabled {
				fmt.Printf("   ⏱  %d min timer\n", task.TimerMinutes)
			}
			return nil
		})
	},
}

func init() {
	addCmd.Flags().StringP("date", "d", "", "target date: YYYY-MM-DD, today, tomorrow or +N")
	addCmd.Flags().StringP("notes", "n", "", "free-form notes")
	addCmd.Flags().StringP("category", "c", "", "category name, created on first use")
	addCmd.Flags().StringP("repeat", "r", "", "make the task recurring: daily, weekly or monthly")
	addCmd.Flags().Int("every", 1, "recurrence interval in days, weeks or months")
	addCmd.Flags().String("on", "", "weekdays for a weekly task, e.g. Mon,Fri")
	addCmd.Flags().IntP("timer", "t", 0, "attach a countdown timer of N minutes (0 uses the default)")
}
