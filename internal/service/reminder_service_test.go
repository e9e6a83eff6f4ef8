package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"dayrally/internal/model"
)

func TestFormatRemaining(t *testing.T) {
	cases := map[int64]string{
		0:    "00:00",
		-3:   "00:00",
		59:   "00:59",
		1500: "25:00",
		3725: "1:02:05",
	}
	for in, want := range cases {
		if got := FormatRemaining(in); got != want {
			t.Errorf("FormatRemaining(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestDescribeRecurrence(t *testing.T) {
	cases := []struct {
		task model.Task
		want string
	}{
		{model.Task{RecurrenceType: model.RecurrenceDaily, RecurrenceInterval: 1}, "ежедневно"},
		{model.Task{RecurrenceType: model.RecurrenceMonthly, RecurrenceInterval: 3}, "каждые 3 мес."},
		{model.Task{RecurrenceType: model.RecurrenceWeekly, RecurrenceInterval: 2, RecurrenceWeekdays: "fri,mon"}, "каждые 2 нед. (Mon,Fri)"},
	}
	for _, tc := range cases {
		if got := DescribeRecurrence(tc.task); got != tc.want {
			t.Errorf("DescribeRecurrence(%+v) = %q, want %q", tc.task, got, tc.want)
		}
	}
}

func TestFormatTaskEscapesAndShowsDetails(t *testing.T) {
	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	from := "2024-01-01"
	ends := now.Add(90 * time.Second)
	category := uint(4)
	task := model.Task{
		ID:             "0123456789abcdef",
		Title:          "<b>call</b>",
		CategoryID:     &category,
		RolledOver:     true,
		RolledFromDate: &from,
		Status:         model.StatusTodo,
		TimerEnabled:   true,
		TimerMinutes:   5,
		TimerState:     model.TimerRunning,
		TimerEndsAt:    &ends,
	}

	got := FormatTask(task, map[uint]string{4: "Дом"}, now)
	for _, want := range []string{"<code>01234567</code>", "&lt;b&gt;call&lt;/b&gt;", "<i>(Дом)</i>", "перенесено с 2024-01-01", "осталось 01:30"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTask output %q misses %q", got, want)
		}
	}
	if task.TimerState != model.TimerRunning {
		t.Errorf("rendering changed the task")
	}
}

func TestDailySummaryUsesOverview(t *testing.T) {
	f := newFixture(t, day(t, "2024-01-01"))
	ctx := context.Background()
	f.create(t, TaskInput{Title: "stale", TargetDate: "2024-01-01"})
	f.create(t, TaskInput{Title: "later", TargetDate: "2024-01-09"})

	reminders := NewReminderService(f.planner, f.taskSvc.categoryRepo, time.UTC)
	summary, err := reminders.DailySummary(ctx, *f.user, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"02.01.2024", "Перенесено", "stale", "<u>2024-01-09</u>", "later"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary misses %q:\n%s", want, summary)
		}
	}
}
