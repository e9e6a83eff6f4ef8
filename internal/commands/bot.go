package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dayrally/internal/bot"
	"dayrally/internal/service"
)

const jobTimeout = 30 * time.Second

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot with its scheduled jobs",
	Long: `Run the Telegram front end. Besides answering chats the daemon polls running
timers, sends the periodic report and reconciles every planner shortly after
midnight. TELEGRAM_TOKEN must be set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.cfg.RequireTelegram(); err != nil {
			return err
		}

		telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Services{
			Users:      a.users,
			Categories: a.categories,
			Tasks:      a.tasks,
			Planner:    a.planner,
			Ordering:   a.ordering,
			Timers:     a.timers,
			Reminders:  a.reminders,
		}, &a.cfg)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		a.timers.SetNotifier(telegramBot)

		scheduler := service.NewSchedulerService(a.cfg.Location)
		if err := scheduleJobs(scheduler, a, telegramBot); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()

		log.Printf("[info] dayrally bot started, %d scheduled jobs", scheduler.Entries())
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("bot stopped with error: %w", err)
		}
		log.Println("[info] shutdown complete")
		return nil
	},
}

// scheduleJobs registers the timer poll, the report and the nightly
// reconciliation.
func scheduleJobs(scheduler *service.SchedulerService, a *app, telegramBot *bot.Bot) error {
	if _, err := scheduler.ScheduleInterval(a.cfg.TimerPoll(), func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := a.timers.PollRunning(jobCtx); err != nil {
			log.Printf("[warn] timer poll: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule timer poll: %w", err)
	}

	report := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[warn] report: %v", err)
		}
	}
	switch {
	case a.cfg.ReportAt != "":
		if _, err := scheduler.ScheduleDaily(a.cfg.ReportAt, report); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
	case a.cfg.ReportInterval() > 0:
		if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval(), report); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
	}

	if _, err := scheduler.ScheduleDaily(a.cfg.RolloverAt, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := a.planner.ReconcileAll(jobCtx, a.tasks.Today()); err != nil {
			log.Printf("[warn] nightly reconcile: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule rollover: %w", err)
	}
	return nil
}
