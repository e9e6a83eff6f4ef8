package recurrence

import (
	"errors"
	"testing"
	"time"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := model.ParseDate(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return d
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		base string
		rule Rule
		want string
	}{
		{"daily", "2026-02-06", Rule{Type: model.RecurrenceDaily, Interval: 1}, "2026-02-07"},
		{"daily interval 3 across month", "2024-01-30", Rule{Type: model.RecurrenceDaily, Interval: 3}, "2024-02-02"},
		{"monthly leap clamp", "2024-01-31", Rule{Type: model.RecurrenceMonthly, Interval: 1}, "2024-02-29"},
		{"monthly non-leap clamp", "2025-01-31", Rule{Type: model.RecurrenceMonthly, Interval: 1}, "2025-02-28"},
		{"monthly keeps day", "2024-03-15", Rule{Type: model.RecurrenceMonthly, Interval: 2}, "2024-05-15"},
		{"monthly across year", "2024-11-30", Rule{Type: model.RecurrenceMonthly, Interval: 3}, "2025-02-28"},
		{"weekly fallback", "2024-03-06", Rule{Type: model.RecurrenceWeekly, Interval: 1}, "2024-03-13"},
		{"weekly fallback interval 2", "2024-03-06", Rule{Type: model.RecurrenceWeekly, Interval: 2}, "2024-03-20"},
		{
			"weekly weekdays same week",
			"2024-03-06",
			Rule{Type: model.RecurrenceWeekly, Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Friday}},
			"2024-03-08",
		},
		{
			"weekly weekdays next week",
			"2024-03-08",
			Rule{Type: model.RecurrenceWeekly, Interval: 1, Weekdays: []time.Weekday{time.Monday, time.Friday}},
			"2024-03-11",
		},
		{
			"weekly weekdays every other week",
			"2024-03-08",
			Rule{Type: model.RecurrenceWeekly, Interval: 2, Weekdays: []time.Weekday{time.Monday, time.Friday}},
			"2024-03-18",
		},
		{
			"weekly sunday belongs to monday week",
			"2024-03-09",
			Rule{Type: model.RecurrenceWeekly, Interval: 2, Weekdays: []time.Weekday{time.Sunday}},
			"2024-03-10",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextOccurrence(date(t, tc.base), tc.rule)
			if model.FormatDate(got) != tc.want {
				t.Errorf("NextOccurrence(%s) = %s, want %s", tc.base, model.FormatDate(got), tc.want)
			}
		})
	}
}

func TestNextOccurrenceIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	base := time.Date(2024, 1, 31, 23, 30, 0, 0, loc)
	got := NextOccurrence(base, Rule{Type: model.RecurrenceDaily, Interval: 1})
	if model.FormatDate(got) != "2024-02-01" {
		t.Errorf("got %s, want 2024-02-01", model.FormatDate(got))
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"daily ok", Rule{Type: model.RecurrenceDaily, Interval: 1}, false},
		{"zero interval", Rule{Type: model.RecurrenceDaily, Interval: 0}, true},
		{"negative interval", Rule{Type: model.RecurrenceMonthly, Interval: -2}, true},
		{"unknown type", Rule{Type: "yearly", Interval: 1}, true},
		{"empty type", Rule{Interval: 1}, true},
		{"weekdays on daily", Rule{Type: model.RecurrenceDaily, Interval: 1, Weekdays: []time.Weekday{time.Monday}}, true},
		{"weekly with days", Rule{Type: model.RecurrenceWeekly, Interval: 2, Weekdays: []time.Weekday{time.Monday}}, false},
		{"largest interval", Rule{Type: model.RecurrenceWeekly, Interval: MaxInterval}, false},
		{"interval too large", Rule{Type: model.RecurrenceWeekly, Interval: MaxInterval + 1}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Fatalf("Validate() = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestParseAndFormatWeekdays(t *testing.T) {
	days, err := ParseWeekdays(" fri, Mon ,monday,")
	if err != nil {
		t.Fatalf("ParseWeekdays: %v", err)
	}
	if len(days) != 2 || days[0] != time.Monday || days[1] != time.Friday {
		t.Fatalf("days = %v, want [Monday Friday]", days)
	}
	if got := FormatWeekdays(days); got != "Mon,Fri" {
		t.Errorf("FormatWeekdays = %q, want %q", got, "Mon,Fri")
	}
	if got := FormatWeekdays([]time.Weekday{time.Sunday, time.Wednesday}); got != "Wed,Sun" {
		t.Errorf("FormatWeekdays = %q, want %q", got, "Wed,Sun")
	}

	for _, bad := range []string{"Mon,Funday", "Monkey", "tuesdayXYZ", "mo", "Tues"} {
		if _, err := ParseWeekdays(bad); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("ParseWeekdays(%q) = %v, want validation error", bad, err)
		}
	}
	if days, err := ParseWeekdays("Tuesday,SUNDAY"); err != nil || FormatWeekdays(days) != "Tue,Sun" {
		t.Errorf("full names = %v, %v", days, err)
	}
	if days, err := ParseWeekdays(""); err != nil || len(days) != 0 {
		t.Errorf("ParseWeekdays(\"\") = %v, %v", days, err)
	}
}

func TestNextOccurrenceLargeWeeklyInterval(t *testing.T) {
	// 2024-03-06 is a Wednesday, so Mon,Tue first come around MaxInterval weeks later.
	rule := Rule{Type: model.RecurrenceWeekly, Interval: MaxInterval, Weekdays: []time.Weekday{time.Monday, time.Tuesday}}
	if err := rule.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := NextOccurrence(date(t, "2024-03-06"), rule)
	want := date(t, "2024-03-04").AddDate(0, 0, 7*MaxInterval)
	if !got.Equal(want) {
		t.Fatalf("NextOccurrence = %s, want %s", model.FormatDate(got), model.FormatDate(want))
	}
	if got.Weekday() != time.Monday {
		t.Fatalf("landed on %s", got.Weekday())
	}
}
