package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dayrally/internal/config"
	"dayrally/internal/model"
	"dayrally/internal/repository"
	"dayrally/internal/service"
)

// Services groups what the bot drives.
type Services struct {
	Users      *repository.UserRepository
	Categories *service.CategoryService
	Tasks      *service.TaskService
	Planner    *service.PlannerService
	Ordering   *service.OrderingService
	Timers     *service.TimerService
	Reminders  *service.ReminderService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api         *tgbotapi.BotAPI
	userRepo    *repository.UserRepository
	categorySvc *service.CategoryService
	taskSvc     *service.TaskService
	plannerSvc  *service.PlannerService
	orderingSvc *service.OrderingService
	timerSvc    *service.TimerService
	reminderSvc *service.ReminderService
	config      *config.Config

	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      svc.Users,
		categorySvc:   svc.Categories,
		taskSvc:       svc.Tasks,
		plannerSvc:    svc.Planner,
		orderingSvc:   svc.Ordering,
		timerSvc:      svc.Timers,
		reminderSvc:   svc.Reminders,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[warn] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}

	return nil
}

// TimerExpired tells the owner of task that its countdown is over.
func (b *Bot) TimerExpired(ctx context.Context, task model.Task) error {
	user, err := b.userRepo.GetByID(ctx, task.UserID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("⏰ <b>Время вышло</b>\n%s <code>%s</code>", escape(normalizeTitle(task.Title)), task.ShortID())
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Готово", callbackData(cbDone, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🔁 Ещё раз", callbackData(cbTimerStart, task.ID)),
		),
	)
	log.Printf("[info] timer finished task=%s user=%d", task.ShortID(), user.ID)
	return b.sendWithReplyMarkup(user.TelegramID, text, markup)
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminderSvc.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[warn] build summary for user %d: %v", user.TelegramID, err)
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.Printf("[warn] send summary to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) now() time.Time {
	return b.taskSvc.Today()
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// send posts an HTML message with the given keyboard; nil keeps the client's.
func (b *Bot) send(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.send(chatID, text, mainMenuKeyboard())
}

// sendTextWithRemove drops a dialog keyboard and brings the main menu back.
func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	if err := b.send(chatID, text, tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup any) error {
	return b.send(chatID, text, markup)
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	return b.send(chatID, "🔹 Главное меню", mainMenuKeyboard())
}

// sendError replies with a user-facing description of err.
func (b *Bot) sendError(chatID int64, err error) error {
	log.Printf("[info] reply error to %d: %v", chatID, err)
	return b.sendText(chatID, describeError(err))
}

// Dialog state is per Telegram user and lives only in memory; a restart
// drops unfinished dialogs.

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	b.confirmations[userID] = req
	b.mu.Unlock()
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	delete(b.confirmations, userID)
	b.mu.Unlock()
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	b.conversations[userID] = state
	b.mu.Unlock()
}

// getConversation returns nil when the user is not in the middle of /newtask.
func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	delete(b.conversations, userID)
	b.mu.Unlock()
}

func commandArg(msg *tgbotapi.Message) string {
	return strings.TrimSpace(msg.CommandArguments())
}
