package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
	"dayrally/internal/timer"
)

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []model.Task
	err   error
}

func (n *recordingNotifier) TimerExpired(_ context.Context, task model.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, task)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tasks)
}

var timerStart = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func newTimerFixture(t *testing.T) (*fixture, *recordingNotifier, *model.Task) {
	t.Helper()
	f := newFixture(t, timerStart)
	notifier := &recordingNotifier{}
	f.timers.SetNotifier(notifier)
	task := f.create(t, TaskInput{Title: "focus", TargetDate: "2024-01-01", TimerEnabled: true, TimerMinutes: 25})
	return f, notifier, task
}

func TestTimerExpiresExactlyOnce(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()

	started, err := f.timers.StartTimer(ctx, f.user.ID, task.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.TimerState != model.TimerRunning || started.TimerEndsAt == nil {
		t.Fatalf("timer not running after start: %+v", started)
	}

	obs, err := f.timers.ObserveTimers(ctx, []string{task.ID}, timerStart.Add(24*time.Minute+59*time.Second))
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if obs[0].Expired || obs[0].RemainingSeconds != 1 || obs[0].State != timer.StateRunning {
		t.Fatalf("before deadline: %+v", obs[0])
	}

	expired := 0
	for _, offset := range []time.Duration{25 * time.Minute, 25 * time.Minute, 40 * time.Minute} {
		obs, err := f.timers.ObserveTimers(ctx, []string{task.ID}, timerStart.Add(offset))
		if err != nil {
			t.Fatalf("observe at %v: %v", offset, err)
		}
		if obs[0].RemainingSeconds != 0 || obs[0].State != timer.StateFinished {
			t.Fatalf("after deadline: %+v", obs[0])
		}
		if obs[0].Expired {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("expired reported %d times, want 1", expired)
	}
	if notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.count())
	}
	if got := f.reload(t, task.ID); got.TimerState != model.TimerFinished || got.TimerEndsAt != nil {
		t.Fatalf("stored timer: state=%s ends_at=%v", got.TimerState, got.TimerEndsAt)
	}
}

func TestConcurrentPollersSignalOnce(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := timerStart.Add(25 * time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.timers.ObserveTimers(ctx, []string{task.ID}, deadline); err != nil {
				t.Errorf("observe: %v", err)
			}
		}()
	}
	wg.Wait()

	if notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.count())
	}
}

func TestObserveUnknownTaskKeepsGoing(t *testing.T) {
	f, _, task := newTimerFixture(t)
	ctx := context.Background()
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	obs, err := f.timers.ObserveTimers(ctx, []string{"missing", task.ID}, timerStart.Add(time.Minute))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if len(obs) != 1 || obs[0].TaskID != task.ID || obs[0].RemainingSeconds != 24*60 {
		t.Fatalf("observations = %+v", obs)
	}
}

func TestStartTimerRejectsInvalidStates(t *testing.T) {
	f, _, task := newTimerFixture(t)
	ctx := context.Background()
	plain := f.create(t, TaskInput{Title: "no timer", TargetDate: "2024-01-01"})

	if _, err := f.timers.StartTimer(ctx, f.user.ID, plain.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("start disabled timer: err = %v", err)
	}
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("start running timer: err = %v", err)
	}
}

func TestStopTimer(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()

	stopped, err := f.timers.StopTimer(ctx, f.user.ID, task.ID)
	if err != nil {
		t.Fatalf("stop idle timer: %v", err)
	}
	if stopped.TimerState != model.TimerIdle {
		t.Fatalf("idle stop changed state to %s", stopped.TimerState)
	}

	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.timers.StopTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	got := f.reload(t, task.ID)
	if got.TimerState != model.TimerIdle || got.TimerEndsAt != nil {
		t.Fatalf("after stop: state=%s ends_at=%v", got.TimerState, got.TimerEndsAt)
	}

	if _, err := f.timers.ObserveTimers(ctx, []string{task.ID}, timerStart.Add(time.Hour)); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if notifier.count() != 0 {
		t.Fatalf("stopped timer must not expire")
	}
}

func TestPollRunningUsesClock(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	active, err := f.timers.ActiveTimers(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("active timers: %v", err)
	}
	if len(active) != 1 || active[0].RemainingSeconds != 25*60 {
		t.Fatalf("active = %+v", active)
	}

	f.clock.Advance(26 * time.Minute)
	obs, err := f.timers.PollRunning(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(obs) != 1 || !obs[0].Expired {
		t.Fatalf("poll = %+v", obs)
	}
	if notifier.count() != 1 || notifier.tasks[0].ID != task.ID {
		t.Fatalf("notified %d tasks", notifier.count())
	}

	obs, err = f.timers.PollRunning(ctx)
	if err != nil || len(obs) != 0 {
		t.Fatalf("second poll = %+v, %v", obs, err)
	}
	active, err = f.timers.ActiveTimers(ctx, f.user.ID)
	if err != nil || len(active) != 0 {
		t.Fatalf("active after expiry = %+v, %v", active, err)
	}
}

func TestObserveNowUsesClock(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	obs, err := f.timers.ObserveNow(ctx, []string{task.ID})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(obs) != 1 || obs[0].Expired || obs[0].RemainingSeconds != 15*60 {
		t.Fatalf("observe at +10m = %+v", obs)
	}

	f.clock.Advance(16 * time.Minute)
	obs, err = f.timers.ObserveNow(ctx, []string{task.ID})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(obs) != 1 || !obs[0].Expired || obs[0].State != timer.StateFinished {
		t.Fatalf("observe past deadline = %+v", obs)
	}
	if notifier.count() != 1 {
		t.Fatalf("notified %d times", notifier.count())
	}
}

func TestNotifierErrorDoesNotBlockExpiry(t *testing.T) {
	f, notifier, task := newTimerFixture(t)
	ctx := context.Background()
	notifier.err = errors.New("chat unreachable")
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	obs, err := f.timers.ObserveTimers(ctx, []string{task.ID}, timerStart.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !obs[0].Expired || f.reload(t, task.ID).TimerState != model.TimerFinished {
		t.Fatalf("timer should be finished despite the notifier error")
	}
}

func TestResolvingTaskStopsTimer(t *testing.T) {
	f, _, task := newTimerFixture(t)
	ctx := context.Background()
	if _, err := f.timers.StartTimer(ctx, f.user.ID, task.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.setStatus(t, task.ID, model.StatusDone)

	got := f.reload(t, task.ID)
	if got.TimerState != model.TimerIdle || got.TimerEndsAt != nil {
		t.Fatalf("resolved task keeps a running timer: %+v", got)
	}
}
