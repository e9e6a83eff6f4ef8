package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dayrally/internal/model"
	"dayrally/internal/service"
)

var editCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Change a task's title, date, repeat rule or timer",
	Long: `Edit a task in place. Only the given flags change. A new date moves the task
to the end of that day; a new repeat rule applies to the occurrences created
after the edit.

Examples:
  dayrally edit 1a2b3c4d --date tomorrow
  dayrally edit 1a2b3c4d --title "Write the report" --timer 45
  dayrally edit 1a2b3c4d --repeat weekly --on Tue,Thu
  dayrally edit 1a2b3c4d --repeat none --no-timer`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.NFlag() == 0 {
			return errors.New("nothing to change, see dayrally edit --help")
		}
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			task, err := a.resolveRef(ctx, user, args[0])
			if err != nil {
				return err
			}
			input, err := a.tasks.EditInput(ctx, user, task)
			if err != nil {
				return err
			}
			if err := applyEditFlags(flags, &input, a); err != nil {
				return err
			}

			updated, err := a.tasks.UpdateTask(ctx, user, task.ID, input)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s on %s\n", successStyle.Render("✏️  Updated"), idStyle.Render(updated.ShortID()), updated.Title, updated.TargetDate)
			if updated.IsRecurring {
				fmt.Printf("   🔁 %s\n", describeRepeat(*updated))
			}
			if updated.TimerEnabled {
				fmt.Printf("   ⏱  %d min timer\n", updated.TimerMinutes)
			}
			return nil
		})
	},
}

// applyEditFlags overlays the flags the user set onto the task's current
// values.
func applyEditFlags(flags *pflag.FlagSet, input *service.TaskInput, a *app) error {
	if flags.Changed("title") {
		input.Title, _ = flags.GetString("title")
	}
	if flags.Changed("notes") {
		input.Notes, _ = flags.GetString("notes")
	}
	if flags.Changed("category") {
		input.Category, _ = flags.GetString("category")
	}
	if flags.Changed("date") {
		value, _ := flags.GetString("date")
		date, err := parseDateFlag(value, a.tasks.Today())
		if err != nil {
			return err
		}
		input.TargetDate = date
	}

	if flags.Changed("repeat") {
		repeat, _ := flags.GetString("repeat")
		switch strings.ToLower(strings.TrimSpace(repeat)) {
		case "none", "off", "no":
			input.IsRecurring = false
			input.RecurrenceType = model.RecurrenceNone
			input.RecurrenceWeekdays = ""
		default:
			kind, err := parseRepeat(repeat)
			if err != nil {
				return err
			}
			if kind != input.RecurrenceType {
				input.RecurrenceWeekdays = ""
			}
			input.IsRecurring = true
			input.RecurrenceType = kind
			if input.RecurrenceInterval < 1 {
				input.RecurrenceInterval = 1
			}
		}
	}
	if flags.Changed("every") {
		input.RecurrenceInterval, _ = flags.GetInt("every")
	}
	if flags.Changed("on") {
		input.RecurrenceWeekdays, _ = flags.GetString("on")
	}

	noTimer, _ := flags.GetBool("no-timer")
	switch {
	case noTimer && flags.Changed("timer"):
		return errors.New("--timer and --no-timer cannot be combined")
	case noTimer:
		input.TimerEnabled = false
		input.TimerMinutes = 0
	case flags.Changed("timer"):
		input.TimerEnabled = true
		input.TimerMinutes, _ = flags.GetInt("timer")
	}
	return nil
}

func init() {
	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().StringP("date", "d", "", "new date: YYYY-MM-DD, today, tomorrow or +N")
	editCmd.Flags().StringP("notes", "n", "", "replace the notes")
	editCmd.Flags().StringP("category", "c", "", "category name, empty to clear")
	editCmd.Flags().StringP("repeat", "r", "", "daily, weekly, monthly or none")
	editCmd.Flags().Int("every", 1, "recurrence interval in days, weeks or months")
	editCmd.Flags().String("on", "", "weekdays for a weekly task, e.g. Mon,Fri")
	editCmd.Flags().IntP("timer", "t", 0, "countdown timer of N minutes (0 uses the default)")
	editCmd.Flags().Bool("no-timer", false, "remove the task's timer")
}
