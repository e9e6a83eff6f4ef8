package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "учеба", "учёба":
		icon = "🎓"
	case "работа":
		icon = "💼"
	case "покупки":
		icon = "🛒"
	case "здоровье":
		icon = "🩺"
	case "личное":
		icon = "🧩"
	default:
		icon = "🏷️"
	}
	return fmt.Sprintf("%s %s", icon, escape(normalizeTitle(base)))
}

// describeError turns a service error into a chat reply.
func describeError(err error) string {
	var detail string
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		detail = ae.Err.Error()
	}
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Задача не найдена или уже удалена."
	case errors.Is(err, apperr.ErrValidation):
		return "Некорректные данные: " + escape(detail)
	case errors.Is(err, apperr.ErrInvalidState):
		return "Сейчас это сделать нельзя: " + escape(detail)
	default:
		return "Ошибка: " + escape(err.Error())
	}
}

// parseDateInput accepts YYYY-MM-DD or the words today/tomorrow.
func parseDateInput(text string, now time.Time) (string, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", strings.ToLower(btnToday), "today":
		return model.FormatDate(now), nil
	case strings.ToLower(btnTomorrow), "tomorrow":
		return model.FormatDate(now.AddDate(0, 0, 1)), nil
	}
	d, err := model.ParseDate(strings.TrimSpace(text))
	if err != nil {
		return "", err
	}
	return model.FormatDate(d), nil
}

// parseRescheduleArgs splits "<id> <date>" from a /date command.
func parseRescheduleArgs(args string, now time.Time) (string, string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("expected a task id and a date, got %q", args)
	}
	date, err := parseDateInput(fields[1], now)
	if err != nil {
		return "", "", err
	}
	return fields[0], date, nil
}

func parseRecurrenceType(text string) (model.RecurrenceType, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnDaily), "daily", "день":
		return model.RecurrenceDaily, true
	case strings.ToLower(btnWeekly), "weekly", "неделя":
		return model.RecurrenceWeekly, true
	case strings.ToLower(btnMonthly), "monthly", "месяц":
		return model.RecurrenceMonthly, true
	}
	return "", false
}

func intervalUnit(kind model.RecurrenceType) string {
	switch kind {
	case model.RecurrenceWeekly:
		return "недель"
	case model.RecurrenceMonthly:
		return "месяцев"
	default:
		return "дней"
	}
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isYesInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "да" || value == "yes" || value == "y"
}

func isNoInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "нет" || value == "no" || value == "n" || value == "-"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод"
}
