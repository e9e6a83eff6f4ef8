package commands

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dayrally/internal/apperr"
	"dayrally/internal/clock"
	"dayrally/internal/config"
	"dayrally/internal/model"
	"dayrally/internal/repository"
	"dayrally/internal/service"
)

// app is the wired object graph shared by the bot daemon and the CLI.
type app struct {
	cfg config.Config
	db  *gorm.DB

	users        *repository.UserRepository
	categoryRepo *repository.CategoryRepository
	taskRepo     *repository.TaskRepository

	categories *service.CategoryService
	ordering   *service.OrderingService
	planner    *service.PlannerService
	tasks      *service.TaskService
	timers     *service.TimerService
	reminders  *service.ReminderService
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return newApp(cfg, clock.Real{})
}

func newApp(cfg config.Config, clk clock.Clock) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:          cfg,
		db:           db,
		users:        repository.NewUserRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		taskRepo:     repository.NewTaskRepository(db),
	}
	a.categories = service.NewCategoryService(a.categoryRepo)
	a.ordering = service.NewOrderingService(a.taskRepo)
	a.planner = service.NewPlannerService(a.taskRepo, a.users, a.ordering)
	a.tasks = service.NewTaskService(a.taskRepo, a.categoryRepo, a.ordering, clk, cfg.Location, cfg.DefaultTimerMinutes)
	a.timers = service.NewTimerService(a.taskRepo, clk, nil)
	a.reminders = service.NewReminderService(a.planner, a.categoryRepo, cfg.Location)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// localUser is the account the CLI acts as. It shares rows with the bot when
// LOCAL_TELEGRAM_ID matches a Telegram user.
func (a *app) localUser(ctx context.Context) (*model.User, error) {
	user, err := a.users.FindByTelegramID(ctx, a.cfg.LocalTelegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return a.users.UpsertFromTelegram(ctx, a.cfg.LocalTelegramID, "local", "", "")
}

// withApp opens the database, resolves the local user and runs fn.
func withApp(fn func(ctx context.Context, a *app, user *model.User) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	user, err := a.localUser(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, a, user)
}

// resolveRef finds one of the user's tasks by full or 8-character id.
func (a *app) resolveRef(ctx context.Context, user *model.User, ref string) (*model.Task, error) {
	return a.tasks.FindByShortID(ctx, user, ref)
}
