package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayrally/internal/model"
	"dayrally/internal/service"
)

type confirmationRequest struct {
	taskID string
	title  string
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Можно начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.getConversation(msg.From.ID) != nil {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.From.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today", "tasks":
		return b.handleToday(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "done", "complete":
		return b.handleStatus(ctx, msg, model.StatusDone)
	case "skip":
		return b.handleStatus(ctx, msg, model.StatusSkipped)
	case "reopen":
		return b.handleStatus(ctx, msg, model.StatusTodo)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "date", "reschedule":
		return b.handleReschedule(ctx, msg)
	case "up":
		return b.handleMove(ctx, msg, service.DirectionUp)
	case "down":
		return b.handleMove(ctx, msg, service.DirectionDown)
	case "timer":
		return b.handleTimerStart(ctx, msg)
	case "stop":
		return b.handleTimerStop(ctx, msg)
	case "timers":
		return b.handleTimers(ctx, msg)
	case "compact":
		return b.handleCompact(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

const commandList = "• /newtask — добавить задачу пошагово\n" +
	"• /today — план на сегодня, перенесённые и предстоящие задачи\n" +
	"• /done &lt;id&gt; — отметить выполненной\n" +
	"• /skip &lt;id&gt; — пропустить\n" +
	"• /reopen &lt;id&gt; — вернуть в работу\n" +
	"• /delete &lt;id&gt; — удалить задачу\n" +
	"• /date &lt;id&gt; &lt;дата&gt; — перенести задачу на другой день\n" +
	"• /up &lt;id&gt;, /down &lt;id&gt; — поменять порядок\n" +
	"• /timer &lt;id&gt;, /stop &lt;id&gt; — запустить или остановить таймер\n" +
	"• /timers — активные таймеры\n" +
	"• /compact — пронумеровать задачи дня заново\n" +
	"• /categories — список категорий\n" +
	"• /report — ежедневный отчёт сейчас\n" +
	"• /cancel — отменить текущий ввод"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я планировщик дня: незавершённые задачи сами переедут на сегодня, а повторяющиеся появятся вовремя.</b>\n\nКоманды:\n%s",
		escape(name), commandList,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" + commandList + "\n\n" +
		"ID задачи — первые 8 символов, показанные в списке, например <code>/done 1a2b3c4d</code>.\n" +
		b.scheduleHint()
	return b.sendText(msg.Chat.ID, text)
}

// scheduleHint tells when reports arrive and the default timer length.
func (b *Bot) scheduleHint() string {
	if b.config == nil {
		return ""
	}
	var report string
	switch {
	case b.config.ReportAt != "":
		report = fmt.Sprintf("Отчёт приходит каждый день в %s.", b.config.ReportAt)
	case b.config.ReportIntervalHours > 0:
		report = fmt.Sprintf("Отчёт приходит каждые %d ч.", b.config.ReportIntervalHours)
	default:
		report = "Автоматический отчёт выключен."
	}
	return fmt.Sprintf("%s Таймер по умолчанию: %d мин.", report, b.config.DefaultTimerMinutes)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminderSvc.DailySummary(ctx, *user, b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	log.Printf("[info] overview for user=%d", user.ID)
	return b.sendOverview(ctx, msg.Chat.ID, user)
}

// sendOverview reconciles the user's planner and sends it with action buttons
// for today's open tasks.
func (b *Bot) sendOverview(ctx context.Context, chatID int64, user *model.User) error {
	now := b.now()
	overview, err := b.plannerSvc.GetOverview(ctx, user.ID, now)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	catNames, err := b.categorySvc.Names(ctx, user)
	if err != nil {
		log.Printf("[warn] category names for user=%d: %v", user.ID, err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>План на %s</b>\n\n", now.Format("02.01.2006")))
	builder.WriteString(service.RenderOverview(overview, catNames, now))

	current := append(service.SortForDisplay(overview.Today), service.SortForDisplay(overview.RolledOver)...)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range current {
		if task.Status.Resolved() {
			continue
		}
		rows = append(rows, taskButtons(task))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err = b.api.Send(msg)
	return err
}

// resolveTask finds the task referenced by the command argument.
func (b *Bot) resolveTask(ctx context.Context, msg *tgbotapi.Message, usage string) (*model.User, *model.Task, bool, error) {
	ref := commandArg(msg)
	if ref == "" {
		return nil, nil, false, b.sendText(msg.Chat.ID, "Укажи ID задачи: "+usage)
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return nil, nil, false, err
	}
	task, err := b.taskSvc.FindByShortID(ctx, user, ref)
	if err != nil {
		return nil, nil, false, b.sendError(msg.Chat.ID, err)
	}
	return user, task, true, nil
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message, status model.Status) error {
	user, task, ok, err := b.resolveTask(ctx, msg, "/"+msg.Command()+" 1a2b3c4d")
	if !ok {
		return err
	}
	return b.setStatusAndReply(ctx, msg.Chat.ID, user, task.ID, status)
}

func (b *Bot) setStatusAndReply(ctx context.Context, chatID int64, user *model.User, taskID string, status model.Status) error {
	task, err := b.taskSvc.SetStatus(ctx, user, taskID, status)
	if err != nil {
		return b.sendError(chatID, err)
	}
	log.Printf("[info] task status id=%s user=%d status=%s", task.ShortID(), user.ID, status)

	title := escape(normalizeTitle(task.Title))
	var text string
	switch status {
	case model.StatusDone:
		text = fmt.Sprintf("✅ Задача «%s» выполнена.", title)
	case model.StatusSkipped:
		text = fmt.Sprintf("⏭ Задача «%s» пропущена.", title)
	default:
		text = fmt.Sprintf("🔄 Задача «%s» снова в работе.", title)
	}
	if task.IsRecurring && status.Resolved() {
		text += "\n♻️ Следующее повторение появится в плане."
	}
	return b.sendText(chatID, text)
}

// handleReschedule moves a task to another day: /date <id> <YYYY-MM-DD|today|tomorrow>.
func (b *Bot) handleReschedule(ctx context.Context, msg *tgbotapi.Message) error {
	ref, date, err := parseRescheduleArgs(commandArg(msg), b.now())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID и дату: /date 1a2b3c4d 2025-01-31 (или today, tomorrow).")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.FindByShortID(ctx, user, ref)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	input, err := b.taskSvc.EditInput(ctx, user, task)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	input.TargetDate = date
	updated, err := b.taskSvc.UpdateTask(ctx, user, task.ID, input)
	if err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	log.Printf("[info] task rescheduled id=%s user=%d date=%s", updated.ShortID(), user.ID, updated.TargetDate)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📅 Задача «%s» перенесена на %s.", escape(normalizeTitle(updated.Title)), updated.TargetDate))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	_, task, ok, err := b.resolveTask(ctx, msg, "/delete 1a2b3c4d")
	if !ok {
		return err
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, task)
}

func (b *Bot) askDeleteConfirmation(chatID, fromID int64, task *model.Task) error {
	b.setConfirmation(fromID, confirmationRequest{taskID: task.ID, title: task.Title})
	text := fmt.Sprintf("Удалить задачу «%s» (<code>%s</code>)?", escape(normalizeTitle(task.Title)), task.ShortID())
	if task.IsRecurring {
		text += "\nПовторения этой задачи больше не будут создаваться из неё."
	}
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени удаление задачи.", confirmKeyboard())
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.taskSvc.DeleteTask(ctx, user, req.taskID); err != nil {
		return b.sendTextWithRemove(chatID, describeError(err))
	}

	log.Printf("[info] task deleted id=%s user=%d", req.taskID, user.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Задача «%s» удалена.", escape(normalizeTitle(req.title)))); err != nil {
		return err
	}
	return b.sendOverview(ctx, chatID, user)
}

func (b *Bot) handleMove(ctx context.Context, msg *tgbotapi.Message, dir service.Direction) error {
	user, task, ok, err := b.resolveTask(ctx, msg, "/"+msg.Command()+" 1a2b3c4d")
	if !ok {
		return err
	}
	if err := b.orderingSvc.Move(ctx, user.ID, task.ID, dir); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendOverview(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleTimerStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, task, ok, err := b.resolveTask(ctx, msg, "/timer 1a2b3c4d")
	if !ok {
		return err
	}
	return b.startTimerAndReply(ctx, msg.Chat.ID, user, task.ID)
}

func (b *Bot) startTimerAndReply(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	task, err := b.timerSvc.StartTimer(ctx, user.ID, taskID)
	if err != nil {
		return b.sendError(chatID, err)
	}
	log.Printf("[info] timer started task=%s user=%d minutes=%d", task.ShortID(), user.ID, task.TimerMinutes)
	ends := task.TimerEndsAt.In(b.now().Location()).Format("15:04")
	text := fmt.Sprintf("⏱ Таймер на %d мин запущен: «%s». Закончится в %s.", task.TimerMinutes, escape(normalizeTitle(task.Title)), ends)
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⏹ Остановить", callbackData(cbTimerStop, task.ID)),
	))
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) handleTimerStop(ctx context.Context, msg *tgbotapi.Message) error {
	user, task, ok, err := b.resolveTask(ctx, msg, "/stop 1a2b3c4d")
	if !ok {
		return err
	}
	return b.stopTimerAndReply(ctx, msg.Chat.ID, user, task.ID)
}

func (b *Bot) stopTimerAndReply(ctx context.Context, chatID int64, user *model.User, taskID string) error {
	task, err := b.timerSvc.StopTimer(ctx, user.ID, taskID)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("⏹ Таймер задачи «%s» остановлен.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleTimers(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	active, err := b.timerSvc.ActiveTimers(ctx, user.ID)
	if err != nil {
		log.Printf("[warn] active timers for user=%d: %v", user.ID, err)
	}
	if len(active) == 0 {
		return b.sendText(msg.Chat.ID, "Активных таймеров нет. Запусти: /timer &lt;id&gt;")
	}

	var builder strings.Builder
	builder.WriteString("⏱ <b>Активные таймеры</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, obs := range active {
		builder.WriteString(fmt.Sprintf("• %s — осталось %s\n", escape(normalizeTitle(obs.Title)), service.FormatRemaining(obs.RemainingSeconds)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏹ "+shortTitle(obs.Title, 24), callbackData(cbTimerStop, obs.TaskID)),
		))
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleCompact(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	date := commandArg(msg)
	if date == "" {
		date = model.FormatDate(b.now())
	}
	if _, err := model.ParseDate(date); err != nil {
		return b.sendText(msg.Chat.ID, "Дата должна быть в формате <code>2025-11-30</code>.")
	}
	if err := b.orderingSvc.Compact(ctx, service.BucketKey{UserID: user.ID, Date: date}); err != nil {
		return b.sendError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🧹 Порядок задач на %s обновлён.", date))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.categorySvc.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить категории: %s", escape(err.Error())))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категории пока пусты. Добавь их при создании задачи.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s\n", categoryLabel(cat.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelTimers):
		return true, b.handleTimers(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
