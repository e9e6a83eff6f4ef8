// Package recurrence derives the next occurrence date of a recurring task.
// Every function here is pure: dates go in, dates come out.
package recurrence

import (
	"slices"
	"strings"
	"time"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

// Rule is a parsed recurrence definition.
type Rule struct {
	Type     model.RecurrenceType
	Interval int
	// Weekdays is only consulted for weekly rules. Empty means "the weekday
	// of the base date".
	Weekdays []time.Weekday
}

var weekdayTags = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// MaxInterval bounds the interval of every rule type.
const MaxInterval = 1000

// lookupWeekday accepts a three-letter tag or a full English day name.
func lookupWeekday(tag string) (time.Weekday, bool) {
	if day, ok := weekdayTags[tag]; ok {
		return day, true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if tag == strings.ToLower(d.String()) {
			return d, true
		}
	}
	return 0, false
}

// ParseWeekdays reads a comma separated list of weekdays given as Mon..Sun
// or full names, case-insensitive. Duplicates are collapsed.
func ParseWeekdays(csv string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(csv, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		day, ok := lookupWeekday(tag)
		if !ok {
			return nil, apperr.Validation("parse weekdays", "unknown weekday %q", strings.TrimSpace(part))
		}
		if !slices.Contains(days, day) {
			days = append(days, day)
		}
	}
	return sortMondayFirst(days), nil
}

// FormatWeekdays renders days in Monday-first order, e.g. "Mon,Fri".
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range sortMondayFirst(slices.Clone(days)) {
		names = append(names, weekdayNames[d])
	}
	return strings.Join(names, ",")
}

func sortMondayFirst(days []time.Weekday) []time.Weekday {
	slices.SortFunc(days, func(a, b time.Weekday) int {
		return daysFromMonday(a) - daysFromMonday(b)
	})
	return days
}

// FromTask extracts the rule stored on a task.
func FromTask(t model.Task) (Rule, error) {
	days, err := ParseWeekdays(t.RecurrenceWeekdays)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Type: t.RecurrenceType, Interval: t.RecurrenceInterval, Weekdays: days}, nil
}

// Validate rejects rules NextOccurrence cannot evaluate.
func (r Rule) Validate() error {
	switch r.Type {
	case model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly:
	default:
		return apperr.Validation("validate recurrence", "unknown recurrence type %q", r.Type)
	}
	if r.Interval < 1 || r.Interval > MaxInterval {
		return apperr.Validation("validate recurrence", "interval must be between 1 and %d, got %d", MaxInterval, r.Interval)
	}
	if r.Type != model.RecurrenceWeekly && len(r.Weekdays) > 0 {
		return apperr.Validation("validate recurrence", "weekdays are only allowed for weekly recurrence")
	}
	return nil
}

// NextOccurrence returns the first occurrence strictly after base. base is a
// calendar date (time of day is ignored); the result is midnight UTC. rule
// must have passed Validate.
func NextOccurrence(base time.Time, rule Rule) time.Time {
	base = time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	interval := max(rule.Interval, 1)

	switch rule.Type {
	case model.RecurrenceDaily:
		return base.AddDate(0, 0, interval)
	case model.RecurrenceWeekly:
		if len(rule.Weekdays) == 0 {
			return base.AddDate(0, 0, 7*interval)
		}
		return nextWeekday(base, interval, rule.Weekdays)
	case model.RecurrenceMonthly:
		return addMonthsClamped(base, interval)
	default:
		return base
	}
}

// nextWeekday walks forward from base until it hits an allowed weekday in a
// week that is a whole multiple of interval weeks away from base's week.
func nextWeekday(base time.Time, interval int, weekdays []time.Weekday) time.Time {
	originWeek := dayNumber(weekStart(base))
	limit := base.AddDate(0, 0, 7*(interval+1))
	for cursor := base.AddDate(0, 0, 1); !cursor.After(limit); cursor = cursor.AddDate(0, 0, 1) {
		weeks := (dayNumber(weekStart(cursor)) - originWeek) / 7
		if weeks%int64(interval) == 0 && slices.Contains(weekdays, cursor.Weekday()) {
			return cursor
		}
	}
	return base.AddDate(0, 0, 7*interval)
}

// dayNumber counts days since the Unix epoch for a midnight UTC date.
func dayNumber(d time.Time) int64 {
	return d.Unix() / 86400
}

func weekStart(d time.Time) time.Time {
	return d.AddDate(0, 0, -daysFromMonday(d.Weekday()))
}

func daysFromMonday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func addMonthsClamped(base time.Time, months int) time.Time {
	first := time.Date(base.Year(), base.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(base.Day(), lastDay)-1)
}
