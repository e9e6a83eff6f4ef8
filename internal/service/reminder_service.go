package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"dayrally/internal/model"
	"dayrally/internal/recurrence"
	"dayrally/internal/repository"
	"dayrally/internal/timer"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	planner      *PlannerService
	categoryRepo *repository.CategoryRepository
	loc          *time.Location
}

func NewReminderService(planner *PlannerService, categoryRepo *repository.CategoryRepository, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{planner: planner, categoryRepo: categoryRepo, loc: loc}
}

// DailySummary reconciles the user's planner and renders today's overview.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	now = now.In(s.loc)
	overview, err := s.planner.GetOverview(ctx, user.ID, now)
	if err != nil {
		return "", err
	}
	catNames, err := s.categoryRepo.NamesByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))
	builder.WriteString(RenderOverview(overview, catNames, now))
	return strings.TrimSpace(builder.String()), nil
}

// RenderOverview formats the three buckets as Telegram HTML.
func RenderOverview(o *Overview, catNames map[uint]string, now time.Time) string {
	var builder strings.Builder

	builder.WriteString("🔥 <b>Сегодня</b>\n")
	if len(o.Today) == 0 {
		builder.WriteString("— нет задач на сегодня\n")
	} else {
		for _, task := range SortForDisplay(o.Today) {
			builder.WriteString(FormatTask(task, catNames, now))
		}
	}

	if len(o.RolledOver) > 0 {
		builder.WriteString("\n↪️ <b>Перенесено</b>\n")
		for _, task := range SortForDisplay(o.RolledOver) {
			builder.WriteString(FormatTask(task, catNames, now))
		}
	}

	builder.WriteString("\n📅 <b>Предстоящие</b>\n")
	if len(o.Upcoming) == 0 {
		builder.WriteString("— ничего не запланировано\n")
	} else {
		lastDate := ""
		for _, task := range o.Upcoming {
			if task.TargetDate != lastDate {
				builder.WriteString(fmt.Sprintf("<u>%s</u>\n", task.TargetDate))
				lastDate = task.TargetDate
			}
			builder.WriteString(FormatTask(task, catNames, now))
		}
	}

	if len(o.Failures) > 0 {
		builder.WriteString(fmt.Sprintf("\n⚠️ Не удалось обработать задач: %d\n", len(o.Failures)))
	}
	return builder.String()
}

var statusIcons = map[model.Status]string{
	model.StatusTodo:       "⬜",
	model.StatusInProgress: "🔄",
	model.StatusDone:       "✅",
	model.StatusSkipped:    "⏭",
}

// FormatTask renders one task line with its short id and details.
func FormatTask(task model.Task, catNames map[uint]string, now time.Time) string {
	var sb strings.Builder

	icon, ok := statusIcons[task.Status]
	if !ok {
		icon = "⬜"
	}
	title := html.EscapeString(strings.TrimSpace(task.Title))
	if task.Status.Resolved() {
		title = "<s>" + title + "</s>"
	}
	sb.WriteString(fmt.Sprintf("%s <code>%s</code> %s", icon, task.ShortID(), title))

	if task.CategoryID != nil {
		if name, ok := catNames[*task.CategoryID]; ok {
			trimmed := strings.TrimSpace(name)
			if trimmed != "" {
				sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed)))
			}
		}
	}

	if task.RolledOver && task.RolledFromDate != nil {
		sb.WriteString(fmt.Sprintf("\n   ↪️ перенесено с %s", *task.RolledFromDate))
	}
	if task.IsRecurring {
		sb.WriteString("\n   ♻️ " + DescribeRecurrence(task))
	}
	if line := describeTimer(task, now); line != "" {
		sb.WriteString("\n   ⏱ " + line)
	}
	if task.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(task.Notes)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

// DescribeRecurrence renders a rule such as "каждые 2 нед. (Mon, Fri)".
func DescribeRecurrence(task model.Task) string {
	interval := max(task.RecurrenceInterval, 1)
	var unit string
	switch task.RecurrenceType {
	case model.RecurrenceDaily:
		unit = "дн."
	case model.RecurrenceWeekly:
		unit = "нед."
	case model.RecurrenceMonthly:
		unit = "мес."
	default:
		return "повтор"
	}
	text := fmt.Sprintf("каждые %d %s", interval, unit)
	if interval == 1 {
		switch task.RecurrenceType {
		case model.RecurrenceDaily:
			text = "ежедневно"
		case model.RecurrenceWeekly:
			text = "еженедельно"
		case model.RecurrenceMonthly:
			text = "ежемесячно"
		}
	}
	if task.RecurrenceType == model.RecurrenceWeekly && task.RecurrenceWeekdays != "" {
		if days, err := recurrence.ParseWeekdays(task.RecurrenceWeekdays); err == nil && len(days) > 0 {
			text += fmt.Sprintf(" (%s)", recurrence.FormatWeekdays(days))
		}
	}
	return text
}

func describeTimer(task model.Task, now time.Time) string {
	// Observe works on a copy; rendering never changes state.
	obs := timer.Observe(&task, now)
	switch obs.State {
	case timer.StateRunning:
		return fmt.Sprintf("идёт, осталось %s", FormatRemaining(obs.RemainingSeconds()))
	case timer.StateFinished:
		if obs.Expired {
			return "время вышло"
		}
		return "таймер завершён"
	case timer.StateIdle, timer.StatePaused:
		return fmt.Sprintf("%d мин", task.TimerMinutes)
	}
	return ""
}

// FormatRemaining renders seconds as mm:ss, or h:mm:ss for long timers.
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
