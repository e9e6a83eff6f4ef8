package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayrally/internal/model"
	"dayrally/internal/recurrence"
	"dayrally/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageNotes
	stageCategory
	stageDate
	stageRecurring
	stageRecurrenceType
	stageInterval
	stageWeekdays
	stageTimer
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageNotes
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Добавь заметку (или нажми «Пропустить»).", skipKeyboard())
	case stageNotes:
		if !isSkipInput(text) {
			state.input.Notes = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Выбери категорию или отправь свою (можно «Пропустить»).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 На какой день? Формат <code>2025-11-30</code>, «Сегодня» или «Завтра».", dateKeyboard())
	case stageDate:
		date, err := parseDateInput(text, b.now())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code>.", dateKeyboard())
		}
		state.input.TargetDate = date
		state.stage = stageRecurring
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Сделать задачу повторяющейся?", yesNoKeyboard())
	case stageRecurring:
		switch {
		case isYesInput(text):
			state.input.IsRecurring = true
			state.stage = stageRecurrenceType
			return b.sendWithReplyMarkup(msg.Chat.ID, "Как часто повторять?", recurrenceKeyboard())
		case isNoInput(text):
			state.input.IsRecurring = false
			return b.askTimer(msg.Chat.ID, state)
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, "Нажми «Да» или «Нет».", yesNoKeyboard())
	case stageRecurrenceType:
		kind, ok := parseRecurrenceType(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери: ежедневно, еженедельно или ежемесячно.", recurrenceKeyboard())
		}
		state.input.RecurrenceType = kind
		state.stage = stageInterval
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Каждые сколько %s? (1 — каждый раз)", intervalUnit(kind)), skipKeyboard())
	case stageInterval:
		interval := 1
		if !isSkipInput(text) {
			n, err := strconv.Atoi(text)
			if err != nil || n < 1 || n > 365 {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Интервал должен быть числом от 1 до 365.", skipKeyboard())
			}
			interval = n
		}
		state.input.RecurrenceInterval = interval
		if state.input.RecurrenceType == model.RecurrenceWeekly {
			state.stage = stageWeekdays
			return b.sendWithReplyMarkup(msg.Chat.ID, "📆 В какие дни недели? Например <code>Mon,Fri</code> или «Пропустить» — в тот же день недели.", skipKeyboard())
		}
		return b.askTimer(msg.Chat.ID, state)
	case stageWeekdays:
		if !isSkipInput(text) {
			days, err := recurrence.ParseWeekdays(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не понял дни недели. Пример: <code>Mon,Wed,Fri</code>.", skipKeyboard())
			}
			state.input.RecurrenceWeekdays = recurrence.FormatWeekdays(days)
		}
		return b.askTimer(msg.Chat.ID, state)
	case stageTimer:
		if !isSkipInput(text) && !isNoInput(text) {
			minutes, err := strconv.Atoi(text)
			if err != nil || minutes < 1 || minutes > 24*60 {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Укажи число минут от 1 до 1440 или «Пропустить».", timerKeyboard())
			}
			state.input.TimerEnabled = true
			state.input.TimerMinutes = minutes
		}
		err := b.finishTaskCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) askTimer(chatID int64, state *conversationState) error {
	state.stage = stageTimer
	return b.sendWithReplyMarkup(chatID, "⏱ Нужен таймер? Укажи минуты или «Пропустить».", timerKeyboard())
}

func (b *Bot) finishTaskCreation(ctx context.Context, from *tgbotapi.User, input service.TaskInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.CreateTask(ctx, user, input)
	if err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Не удалось сохранить задачу. %s", describeError(err)))
	}

	log.Printf("[info] task created id=%s user=%d recurring=%t", task.ShortID(), user.ID, task.IsRecurring)

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>\n", task.ShortID()))
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(task.Title))))
	if task.Notes != "" {
		summary.WriteString(fmt.Sprintf("• <b>Заметка:</b> %s\n", escape(task.Notes)))
	}
	if task.CategoryID != nil {
		if category, err := b.categorySvc.Get(ctx, user, *task.CategoryID); err == nil {
			summary.WriteString(fmt.Sprintf("• <b>Категория:</b> %s\n", categoryLabel(category.Name)))
		}
	}
	summary.WriteString(fmt.Sprintf("• <b>Дата:</b> %s\n", task.TargetDate))
	if task.IsRecurring {
		summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", service.DescribeRecurrence(*task)))
	}
	if task.TimerEnabled {
		summary.WriteString(fmt.Sprintf("• <b>Таймер:</b> %d мин\n", task.TimerMinutes))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(summary.String()))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendOverview(ctx, chatID, user)
}
