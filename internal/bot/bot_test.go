package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"dayrally/internal/apperr"
	"dayrally/internal/config"
	"dayrally/internal/model"
)

func TestCallbackDataRoundTrip(t *testing.T) {
	id := "5f0c1c0e-8f5c-4d8e-9a57-1b2f3c4d5e6f"
	for _, action := range []string{cbDone, cbTimerStart, cbTimerStop, cbUp, cbDown, cbDelete} {
		data := callbackData(action, id)
		if len(data) > 64 {
			t.Fatalf("callback data %q exceeds 64 bytes", data)
		}
		gotAction, gotID, ok := parseCallback(data)
		if !ok || gotAction != action || gotID != id {
			t.Fatalf("parseCallback(%q) = %q, %q, %v", data, gotAction, gotID, ok)
		}
	}
	for _, bad := range []string{"", "done", ":abc", "done:"} {
		if _, _, ok := parseCallback(bad); ok {
			t.Errorf("parseCallback(%q) accepted", bad)
		}
	}
}

func TestParseDateInput(t *testing.T) {
	now := time.Date(2024, 2, 28, 22, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"Сегодня":    "2024-02-28",
		"завтра":     "2024-02-29",
		"2024-03-05": "2024-03-05",
	}
	for in, want := range cases {
		got, err := parseDateInput(in, now)
		if err != nil || got != want {
			t.Errorf("parseDateInput(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseDateInput("30.11.2025", now); err == nil {
		t.Errorf("dotted date accepted")
	}
}

func TestParseRescheduleArgs(t *testing.T) {
	now := time.Date(2024, 2, 28, 22, 0, 0, 0, time.UTC)
	ref, date, err := parseRescheduleArgs(" 1a2b3c4d   tomorrow ", now)
	if err != nil || ref != "1a2b3c4d" || date != "2024-02-29" {
		t.Fatalf("parseRescheduleArgs = %q, %q, %v", ref, date, err)
	}
	for _, bad := range []string{"", "1a2b3c4d", "1a2b3c4d 2024-02-30", "1a2b3c4d today extra"} {
		if _, _, err := parseRescheduleArgs(bad, now); err == nil {
			t.Errorf("parseRescheduleArgs(%q) accepted", bad)
		}
	}
}

func TestParseRecurrenceType(t *testing.T) {
	cases := map[string]model.RecurrenceType{
		"Ежедневно":   model.RecurrenceDaily,
		"weekly":      model.RecurrenceWeekly,
		" ЕЖЕМЕСЯЧНО": model.RecurrenceMonthly,
	}
	for in, want := range cases {
		got, ok := parseRecurrenceType(in)
		if !ok || got != want {
			t.Errorf("parseRecurrenceType(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := parseRecurrenceType("hourly"); ok {
		t.Errorf("hourly accepted")
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{apperr.NotFound("get task", "x"), "Задача не найдена"},
		{apperr.Validation("create task", "title is required"), "Некорректные данные: title is required"},
		{apperr.InvalidState("start timer", "x", "timer is already running"), "timer is already running"},
		{errors.New("disk <full>"), "Ошибка: disk &lt;full&gt;"},
	}
	for _, tc := range cases {
		if got := describeError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("describeError(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("купить молоко", 20); got != "Купить молоко" {
		t.Errorf("got %q", got)
	}
	if got := shortTitle("очень длинное название задачи", 10); got != "Очень дли…" {
		t.Errorf("got %q", got)
	}
}

func TestTaskButtonsFollowTimerState(t *testing.T) {
	task := model.Task{ID: "abc", Title: "focus", TimerEnabled: true, TimerState: model.TimerRunning}
	row := taskButtons(task)
	if len(row) != 5 || *row[1].CallbackData != callbackData(cbTimerStop, "abc") {
		t.Fatalf("running timer row = %+v", row)
	}

	task.TimerState = model.TimerIdle
	if row := taskButtons(task); *row[1].CallbackData != callbackData(cbTimerStart, "abc") {
		t.Fatalf("idle timer row = %+v", row)
	}

	task.TimerEnabled = false
	if row := taskButtons(task); len(row) != 4 {
		t.Fatalf("task without timer has %d buttons", len(row))
	}
}

func TestInputMatchers(t *testing.T) {
	if !isSkipInput(btnSkip) || !isSkipInput("skip") || isSkipInput("да") {
		t.Errorf("isSkipInput mismatch")
	}
	if !isConfirmInput(btnConfirm) || isConfirmInput(btnCancel) {
		t.Errorf("isConfirmInput mismatch")
	}
	if !isCancelInput(btnCancel) || isCancelDialogInput(btnCancel) {
		t.Errorf("cancel matchers overlap")
	}
}

func TestScheduleHint(t *testing.T) {
	b := &Bot{config: &config.Config{ReportAt: "09:00", DefaultTimerMinutes: 25}}
	if got := b.scheduleHint(); !strings.Contains(got, "09:00") || !strings.Contains(got, "25 мин") {
		t.Errorf("daily hint = %q", got)
	}
	b.config = &config.Config{ReportIntervalHours: 5, DefaultTimerMinutes: 15}
	if got := b.scheduleHint(); !strings.Contains(got, "5 ч") {
		t.Errorf("interval hint = %q", got)
	}
	if got := (&Bot{}).scheduleHint(); got != "" {
		t.Errorf("hint without config = %q", got)
	}
}
