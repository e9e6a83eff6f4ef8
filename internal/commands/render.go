package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dayrally/internal/model"
	"dayrally/internal/service"
	"dayrally/internal/timer"
)

const (
	colorAccent    = "#7C3AED"
	colorSecondary = "#B1B8C7"
	colorMuted     = "#6D7383"
	colorSuccess   = "#22C55E"
	colorWarning   = "#F59E0B"
	colorError     = "#EF4444"
)

var (
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent))
	dateStyle     = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color(colorSecondary))
	idStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	resolvedStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color(colorMuted))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSecondary)).PaddingLeft(4)
	timerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWarning))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
)

var statusMarks = map[model.Status]string{
	model.StatusTodo:       "[ ]",
	model.StatusInProgress: "[~]",
	model.StatusDone:       "[x]",
	model.StatusSkipped:    "[-]",
}

// renderOverview prints the today, rolled-over and upcoming buckets.
func renderOverview(o *service.Overview, catNames map[uint]string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(headingStyle.Render("Today "+o.Date) + "\n")
	if len(o.Today) == 0 {
		sb.WriteString(idStyle.Render("  nothing planned") + "\n")
	}
	for _, task := range service.SortForDisplay(o.Today) {
		sb.WriteString(renderTask(task, catNames, now))
	}

	if len(o.RolledOver) > 0 {
		sb.WriteString("\n" + headingStyle.Render("Rolled over") + "\n")
		for _, task := range service.SortForDisplay(o.RolledOver) {
			sb.WriteString(renderTask(task, catNames, now))
		}
	}

	if len(o.Upcoming) > 0 {
		sb.WriteString("\n" + headingStyle.Render("Upcoming") + "\n")
		lastDate := ""
		for _, task := range o.Upcoming {
			if task.TargetDate != lastDate {
				sb.WriteString(dateStyle.Render(task.TargetDate) + "\n")
				lastDate = task.TargetDate
			}
			sb.WriteString(renderTask(task, catNames, now))
		}
	}

	for _, f := range o.Failures {
		sb.WriteString(errorStyle.Render("! "+f.Error()) + "\n")
	}
	return sb.String()
}

func renderTask(task model.Task, catNames map[uint]string, now time.Time) string {
	mark, ok := statusMarks[task.Status]
	if !ok {
		mark = "[ ]"
	}
	title := strings.TrimSpace(task.Title)
	if task.Status.Resolved() {
		title = resolvedStyle.Render(title)
	}
	line := fmt.Sprintf("%s %s %s", mark, idStyle.Render(task.ShortID()), title)
	if task.CategoryID != nil {
		if name := strings.TrimSpace(catNames[*task.CategoryID]); name != "" {
			line += idStyle.Render(" #" + name)
		}
	}

	var details []string
	if task.RolledOver && task.RolledFromDate != nil {
		details = append(details, "from "+*task.RolledFromDate)
	}
	if task.IsRecurring {
		details = append(details, describeRepeat(task))
	}
	if text := describeTimer(task, now); text != "" {
		details = append(details, text)
	}
	if task.Notes != "" {
		details = append(details, task.Notes)
	}

	var sb strings.Builder
	sb.WriteString(line + "\n")
	for _, d := range details {
		sb.WriteString(detailStyle.Render(d) + "\n")
	}
	return sb.String()
}

// describeRepeat renders a rule such as "every 2 weeks on Mon,Fri".
func describeRepeat(task model.Task) string {
	interval := max(task.RecurrenceInterval, 1)
	var unit string
	switch task.RecurrenceType {
	case model.RecurrenceDaily:
		unit = "day"
	case model.RecurrenceWeekly:
		unit = "week"
	case model.RecurrenceMonthly:
		unit = "month"
	default:
		return "repeats"
	}
	text := "every " + unit
	if interval > 1 {
		text = fmt.Sprintf("every %d %ss", interval, unit)
	}
	if task.RecurrenceType == model.RecurrenceWeekly && task.RecurrenceWeekdays != "" {
		text += " on " + task.RecurrenceWeekdays
	}
	return text
}

func describeTimer(task model.Task, now time.Time) string {
	obs := timer.Observe(&task, now)
	switch obs.State {
	case timer.StateRunning:
		return "timer " + service.FormatRemaining(obs.RemainingSeconds()) + " left"
	case timer.StateFinished:
		return "timer finished"
	case timer.StateIdle, timer.StatePaused:
		return fmt.Sprintf("timer %d min", task.TimerMinutes)
	}
	return ""
}

// renderObservation is one line of "timer watch" output.
func renderObservation(obs service.TimerObservation) string {
	id := obs.TaskID
	if len(id) > model.ShortIDLen {
		id = id[:model.ShortIDLen]
	}
	switch {
	case obs.Expired:
		return fmt.Sprintf("%s %s %s", timerStyle.Render("⏰ time's up"), idStyle.Render(id), obs.Title)
	case obs.State == timer.StateRunning:
		return fmt.Sprintf("%s %s %s", timerStyle.Render("⏱ "+service.FormatRemaining(obs.RemainingSeconds)), idStyle.Render(id), obs.Title)
	default:
		return fmt.Sprintf("%s %s %s", idStyle.Render(string(obs.State)), idStyle.Render(id), obs.Title)
	}
}
