package service

import (
	"context"
	"log"
	"sync"
	"time"

	"go.uber.org/multierr"

	"dayrally/internal/clock"
	"dayrally/internal/model"
	"dayrally/internal/repository"
	"dayrally/internal/timer"
)

// TimerNotifier is told once when a task's countdown reaches zero.
type TimerNotifier interface {
	TimerExpired(ctx context.Context, task model.Task) error
}

// TimerObservation is the state of one timer at the observed instant.
type TimerObservation struct {
	TaskID           string
	Title            string
	UserID           uint
	State            timer.State
	RemainingSeconds int64
	EndsAt           *time.Time
	Expired          bool
}

// TimerService starts, stops and polls task timers.
type TimerService struct {
	tasks *repository.TaskRepository
	clock clock.Clock

	mu       sync.RWMutex
	notifier TimerNotifier
}

func NewTimerService(tasks *repository.TaskRepository, clk clock.Clock, notifier TimerNotifier) *TimerService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TimerService{tasks: tasks, clock: clk, notifier: notifier}
}

// SetNotifier replaces the expiry sink. The bot registers itself here after
// it has been built on top of the service.
func (s *TimerService) SetNotifier(n TimerNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *TimerService) currentNotifier() TimerNotifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifier
}

// StartTimer starts (or restarts) a task's countdown.
func (s *TimerService) StartTimer(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var started *model.Task
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if err := timer.Start(task, s.clock.Now()); err != nil {
			return err
		}
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		started = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started, nil
}

// StopTimer returns a running timer to idle. Stopping a timer that is not
// running succeeds and changes nothing.
func (s *TimerService) StopTimer(ctx context.Context, userID uint, taskID string) (*model.Task, error) {
	var stopped *model.Task
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}
		stopped = task
		if !timer.Stop(task) {
			return nil
		}
		return tx.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return stopped, nil
}

// ObserveTimers reports the timers of the given tasks at now. A running timer
// past its deadline is moved to finished and the notifier is told exactly
// once. Each task is observed on its own; failures are combined into the
// returned error and do not stop the others.
func (s *TimerService) ObserveTimers(ctx context.Context, taskIDs []string, now time.Time) ([]TimerObservation, error) {
	observations := make([]TimerObservation, 0, len(taskIDs))
	var errs error
	for _, id := range taskIDs {
		obs, task, err := s.observe(ctx, id, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if obs.Expired {
			s.notify(ctx, task)
		}
		observations = append(observations, obs)
	}
	return observations, errs
}

// ObserveNow observes the given tasks at the service clock's current time.
func (s *TimerService) ObserveNow(ctx context.Context, taskIDs []string) ([]TimerObservation, error) {
	return s.ObserveTimers(ctx, taskIDs, s.clock.Now())
}

// PollRunning observes every running timer in the store.
func (s *TimerService) PollRunning(ctx context.Context) ([]TimerObservation, error) {
	running, err := s.tasks.FindRunningTimers(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(running) == 0 {
		return nil, nil
	}
	return s.ObserveTimers(ctx, taskIDs(running), s.clock.Now())
}

// ActiveTimers lists a user's running timers with their remaining time.
// Timers found past their deadline are finished on the way.
func (s *TimerService) ActiveTimers(ctx context.Context, userID uint) ([]TimerObservation, error) {
	running, err := s.tasks.FindRunningTimers(ctx, userID)
	if err != nil {
		return nil, err
	}
	observations, err := s.ObserveTimers(ctx, taskIDs(running), s.clock.Now())
	active := observations[:0]
	for _, obs := range observations {
		if obs.State == timer.StateRunning {
			active = append(active, obs)
		}
	}
	return active, err
}

func (s *TimerService) observe(ctx context.Context, id string, now time.Time) (TimerObservation, model.Task, error) {
	var (
		obs      TimerObservation
		snapshot model.Task
	)
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		endsAt := task.TimerEndsAt
		result := timer.Observe(task, now)
		if result.Expired {
			won, err := tx.FinishTimer(ctx, task.ID)
			if err != nil {
				return err
			}
			// Another poller finished it first.
			result.Expired = won
		}
		obs = TimerObservation{
			TaskID:           task.ID,
			Title:            task.Title,
			UserID:           task.UserID,
			State:            result.State,
			RemainingSeconds: result.RemainingSeconds(),
			EndsAt:           endsAt,
			Expired:          result.Expired,
		}
		snapshot = *task
		return nil
	})
	if err != nil {
		return TimerObservation{}, model.Task{}, err
	}
	return obs, snapshot, nil
}

func (s *TimerService) notify(ctx context.Context, task model.Task) {
	n := s.currentNotifier()
	if n == nil {
		log.Printf("[info] timer finished for task %s (%s), no notifier registered", task.ShortID(), task.Title)
		return
	}
	if err := n.TimerExpired(ctx, task); err != nil {
		log.Printf("[warn] timer notification for task %s failed: %v", task.ShortID(), err)
	}
}

func taskIDs(tasks []model.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
