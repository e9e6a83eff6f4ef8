package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dayrally/internal/model"
	"dayrally/internal/service"
	"dayrally/internal/timer"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Start, stop and watch task timers",
}

var timerStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start (or restart) a task's countdown",
	Long: `Start the countdown of a task that has a timer. A finished timer restarts
from its full duration.

Examples:
  dayrally timer start 3f2a9c1d
  dayrally timer start 3f2a9c1d --watch`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			task, err := a.resolveRef(ctx, user, args[0])
			if err != nil {
				return err
			}
			started, err := a.timers.StartTimer(ctx, user.ID, task.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s, ends at %s\n",
				timerStyle.Render("⏱  Started"), idStyle.Render(started.ShortID()), started.Title,
				started.TimerEndsAt.In(a.cfg.Location).Format("15:04:05"))
			if !watch {
				return nil
			}
			return watchTimers(cmd.Context(), a, user, []string{started.ID})
		})
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop [task-id]",
	Short: "Stop a running countdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			task, err := a.resolveRef(ctx, user, args[0])
			if err != nil {
				return err
			}
			stopped, err := a.timers.StopTimer(ctx, user.ID, task.ID)
			if err != nil {
				return err
			}
			fmt.Printf("⏹️  Timer of %s %s is %s\n", idStyle.Render(stopped.ShortID()), stopped.Title, timer.StateOf(stopped))
			return nil
		})
	},
}

var timerWatchCmd = &cobra.Command{
	Use:   "watch [task-id...]",
	Short: "Follow running timers until they finish",
	Long: `Print the remaining time of running timers every second. Without arguments
every running timer of the local user is followed. Press Ctrl+C to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app, user *model.User) error {
			var ids []string
			for _, ref := range args {
				task, err := a.resolveRef(ctx, user, ref)
				if err != nil {
					return err
				}
				ids = append(ids, task.ID)
			}
			return watchTimers(cmd.Context(), a, user, ids)
		})
	},
}

// terminalNotifier prints expiries to the terminal.
type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) TimerExpired(_ context.Context, task model.Task) error {
	_, err := fmt.Fprintf(n.out, "\a%s %s %s\n", timerStyle.Render("⏰ Time's up:"), idStyle.Render(task.ShortID()), task.Title)
	return err
}

// watchTimers polls once a second until nothing is running or the user
// interrupts. ids restricts the watch; nil follows all of the user's timers.
func watchTimers(parent context.Context, a *app, user *model.User, ids []string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.timers.SetNotifier(terminalNotifier{out: os.Stdout})

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		observations, err := observeForWatch(ctx, a.timers, user, ids)
		if err != nil {
			fmt.Println(errorStyle.Render("Error: " + err.Error()))
		}
		for _, obs := range observations {
			if !obs.Expired {
				fmt.Println(renderObservation(obs))
			}
		}
		if !anyRunning(observations) {
			fmt.Println("No running timers.")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func observeForWatch(ctx context.Context, timers *service.TimerService, user *model.User, ids []string) ([]service.TimerObservation, error) {
	if len(ids) == 0 {
		return timers.ActiveTimers(ctx, user.ID)
	}
	return timers.ObserveNow(ctx, ids)
}

func anyRunning(observations []service.TimerObservation) bool {
	for _, obs := range observations {
		if obs.State == timer.StateRunning {
			return true
		}
	}
	return false
}

func init() {
	timerStartCmd.Flags().BoolP("watch", "w", false, "follow the countdown after starting it")
	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerWatchCmd)
}
