package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayrally/internal/model"
	"dayrally/internal/service"
)

// Callback actions. Data is "<action>:<task id>", well under Telegram's 64 bytes.
const (
	cbDone       = "done"
	cbTimerStart = "tstart"
	cbTimerStop  = "tstop"
	cbUp         = "up"
	cbDown       = "down"
	cbDelete     = "del"
)

func callbackData(action, taskID string) string {
	return action + ":" + taskID
}

func parseCallback(data string) (action, taskID string, ok bool) {
	action, taskID, found := strings.Cut(data, ":")
	if !found || action == "" || taskID == "" {
		return "", "", false
	}
	return action, taskID, true
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}

	action, taskID, ok := parseCallback(cb.Data)
	if !ok {
		return nil
	}
	log.Printf("[info] callback %s user=%d task=%s", action, cb.From.ID, taskID)

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID

	switch action {
	case cbDone:
		if err := b.setStatusAndReply(ctx, chatID, user, taskID, model.StatusDone); err != nil {
			return err
		}
		return b.sendOverview(ctx, chatID, user)
	case cbTimerStart:
		return b.startTimerAndReply(ctx, chatID, user, taskID)
	case cbTimerStop:
		return b.stopTimerAndReply(ctx, chatID, user, taskID)
	case cbUp, cbDown:
		dir := service.DirectionUp
		if action == cbDown {
			dir = service.DirectionDown
		}
		if err := b.orderingSvc.Move(ctx, user.ID, taskID, dir); err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendOverview(ctx, chatID, user)
	case cbDelete:
		task, err := b.taskSvc.GetTask(ctx, user, taskID)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.askDeleteConfirmation(chatID, cb.From.ID, task)
	default:
		return nil
	}
}

// taskButtons is the inline action row shown under an open task.
func taskButtons(task model.Task) []tgbotapi.InlineKeyboardButton {
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 18), callbackData(cbDone, task.ID)),
	}
	if task.TimerEnabled {
		if task.EffectiveTimerState() == model.TimerRunning {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("⏹", callbackData(cbTimerStop, task.ID)))
		} else {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("⏱", callbackData(cbTimerStart, task.ID)))
		}
	}
	return append(row,
		tgbotapi.NewInlineKeyboardButtonData("⬆️", callbackData(cbUp, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData("⬇️", callbackData(cbDown, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData("🗑", callbackData(cbDelete, task.ID)),
	)
}
