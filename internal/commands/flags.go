package commands

import (
	"fmt"
	"strings"
	"time"

	"dayrally/internal/model"
)

// parseDateFlag accepts YYYY-MM-DD, "today", "tomorrow" or "+N" days.
func parseDateFlag(value string, now time.Time) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "today":
		return model.FormatDate(now), nil
	case "tomorrow":
		return model.FormatDate(now.AddDate(0, 0, 1)), nil
	}
	if strings.HasPrefix(value, "+") {
		var days int
		if _, err := fmt.Sscanf(value, "+%d", &days); err != nil || days < 0 {
			return "", fmt.Errorf("invalid date offset %q", value)
		}
		return model.FormatDate(now.AddDate(0, 0, days)), nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return model.FormatDate(d), nil
}

func parseRepeat(value string) (model.RecurrenceType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily", "day", "d":
		return model.RecurrenceDaily, nil
	case "weekly", "week", "w":
		return model.RecurrenceWeekly, nil
	case "monthly", "month", "m":
		return model.RecurrenceMonthly, nil
	}
	return "", fmt.Errorf("unknown repeat %q (daily, weekly or monthly)", value)
}
