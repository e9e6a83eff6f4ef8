package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
	"dayrally/internal/recurrence"
	"dayrally/internal/repository"
)

// Reconciliation stages reported in ReconcileFailure.
const (
	StageRollover   = "rollover"
	StageRecurrence = "recurrence"
)

// ReconcileFailure records one task that could not be reconciled.
type ReconcileFailure struct {
	TaskID string
	Stage  string
	Err    error
}

func (f ReconcileFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Stage, f.TaskID, f.Err)
}

func (f ReconcileFailure) Unwrap() error { return f.Err }

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	RolledOver int
	Spawned    int
	Failures   []ReconcileFailure
}

// Overview is the state of a user's planner for one day.
type Overview struct {
	Date       string
	Today      []model.Task
	RolledOver []model.Task
	Upcoming   []model.Task
	Failures   []ReconcileFailure
}

// Err combines the per-task reconciliation failures, nil when there were none.
func (o *Overview) Err() error {
	return combineFailures(o.Failures)
}

func combineFailures(failures []ReconcileFailure) error {
	var err error
	for _, f := range failures {
		err = multierr.Append(err, f)
	}
	return err
}

// PlannerService rolls unfinished tasks forward and advances recurring series.
type PlannerService struct {
	tasks    *repository.TaskRepository
	users    *repository.UserRepository
	ordering *OrderingService
}

func NewPlannerService(tasks *repository.TaskRepository, users *repository.UserRepository, ordering *OrderingService) *PlannerService {
	return &PlannerService{tasks: tasks, users: users, ordering: ordering}
}

// GetOverview reconciles the user's tasks against today and returns them
// grouped into today, rolled over and upcoming. today is read as a calendar
// date in its own location.
func (s *PlannerService) GetOverview(ctx context.Context, userID uint, today time.Time) (*Overview, error) {
	date := model.FormatDate(today)
	report, err := s.reconcileDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.FindByDateRange(ctx, userID, date, "")
	if err != nil {
		return nil, err
	}
	overview := &Overview{Date: date, Failures: report.Failures}
	for _, task := range tasks {
		switch {
		case task.TargetDate == date && task.RolledOver:
			overview.RolledOver = append(overview.RolledOver, task)
		case task.TargetDate == date:
			overview.Today = append(overview.Today, task)
		case task.TargetDate > date:
			overview.Upcoming = append(overview.Upcoming, task)
		}
	}
	return overview, nil
}

// Reconcile runs the rollover and recurrence passes for one user. The
// returned error is only set when the candidate tasks could not be listed;
// per-task failures are in the report.
func (s *PlannerService) Reconcile(ctx context.Context, userID uint, today time.Time) (ReconcileReport, error) {
	return s.reconcileDate(ctx, userID, model.FormatDate(today))
}

// ReconcileAll reconciles every user. It keeps going after a user fails and
// returns the combined errors.
func (s *PlannerService) ReconcileAll(ctx context.Context, today time.Time) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, u := range users {
		report, err := s.Reconcile(ctx, u.ID, today)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile user %d: %w", u.ID, err))
			continue
		}
		if report.RolledOver > 0 || report.Spawned > 0 {
			log.Printf("[info] reconciled user %d: rolled over %d, spawned %d", u.ID, report.RolledOver, report.Spawned)
		}
		errs = multierr.Append(errs, combineFailures(report.Failures))
	}
	return errs
}

func (s *PlannerService) reconcileDate(ctx context.Context, userID uint, today string) (ReconcileReport, error) {
	var report ReconcileReport

	// Recurrence runs on the dates the tasks had before this pass; rollover
	// never touches resolved tasks, so the order of the passes is free.
	stale, err := s.tasks.FindUnresolvedBefore(ctx, userID, today)
	if err != nil {
		return report, err
	}
	for _, task := range stale {
		moved, err := s.rollOver(ctx, userID, task.ID, today)
		if err != nil {
			report.Failures = append(report.Failures, s.failure(task.ID, StageRollover, err))
			continue
		}
		if moved {
			report.RolledOver++
		}
	}

	resolved, err := s.tasks.FindResolvedRecurring(ctx, userID, today)
	if err != nil {
		return report, err
	}
	for _, task := range resolved {
		spawned, err := s.advance(ctx, userID, task.ID, today)
		if err != nil {
			report.Failures = append(report.Failures, s.failure(task.ID, StageRecurrence, err))
			continue
		}
		if spawned {
			report.Spawned++
		}
	}
	return report, nil
}

func (s *PlannerService) failure(taskID, stage string, err error) ReconcileFailure {
	log.Printf("[warn] %s of task %s failed: %v", stage, taskID, err)
	return ReconcileFailure{TaskID: taskID, Stage: stage, Err: err}
}

// rollOver moves one stale task to today. The task is re-read inside the
// transaction so a concurrent edit or a second pass is a no-op.
func (s *PlannerService) rollOver(ctx context.Context, userID uint, taskID, today string) (bool, error) {
	moved := false
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if task.Status.Resolved() || task.TargetDate >= today {
			return nil
		}
		pos, err := s.ordering.Append(ctx, tx, BucketKey{UserID: userID, Date: today})
		if err != nil {
			return err
		}
		from := task.TargetDate
		task.RolledFromDate = &from
		task.TargetDate = today
		task.RolledOver = true
		task.SortOrder = pos
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		moved = true
		return nil
	})
	return moved, err
}

// advance creates the next occurrence of a resolved recurring task. A series
// that already holds the next date only gets its source marked.
func (s *PlannerService) advance(ctx context.Context, userID uint, taskID, today string) (bool, error) {
	spawned := false
	err := s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		source, err := tx.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if !source.IsRecurring || source.SuccessorSpawned || !source.Status.Resolved() || source.TargetDate > today {
			return nil
		}

		rule, err := recurrence.FromTask(*source)
		if err != nil {
			return err
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		base, err := model.ParseDate(source.TargetDate)
		if err != nil {
			return apperr.E("advance recurrence", apperr.ErrValidation, source.ID, err)
		}
		if source.SeriesID == nil {
			series := uuid.NewString()
			source.SeriesID = &series
		}
		if source.ScheduledDate == "" {
			source.ScheduledDate = source.TargetDate
		}

		// An occurrence pulled ahead of its slot continues the series after the slot.
		nextDay := recurrence.NextOccurrence(base, rule)
		for model.FormatDate(nextDay) <= source.ScheduledDate {
			nextDay = recurrence.NextOccurrence(nextDay, rule)
		}
		next := model.FormatDate(nextDay)

		exists, err := tx.HasOccurrence(ctx, *source.SeriesID, next)
		if err != nil {
			return err
		}
		if !exists {
			successor := successorOf(source, next, today)
			pos, err := s.ordering.Append(ctx, tx, BucketKey{UserID: userID, Date: successor.TargetDate})
			if err != nil {
				return err
			}
			successor.SortOrder = pos
			if err := tx.Insert(ctx, successor); err != nil {
				return err
			}
			spawned = true
		}

		source.SuccessorSpawned = true
		return tx.Update(ctx, source)
	})
	return spawned, err
}

// successorOf copies the rule, content and timer configuration of source into
// a fresh todo occurrence scheduled on next. An occurrence whose date has
// already passed lands on today.
func successorOf(source *model.Task, next, today string) *model.Task {
	target := next
	if target < today {
		target = today
	}
	series := *source.SeriesID
	successor := &model.Task{
		ID:                 uuid.NewString(),
		UserID:             source.UserID,
		CategoryID:         source.CategoryID,
		Title:              source.Title,
		Notes:              source.Notes,
		TargetDate:         target,
		Status:             model.StatusTodo,
		IsRecurring:        true,
		RecurrenceType:     source.RecurrenceType,
		RecurrenceInterval: source.RecurrenceInterval,
		RecurrenceWeekdays: source.RecurrenceWeekdays,
		SeriesID:           &series,
		ScheduledDate:      next,
		TimerEnabled:       source.TimerEnabled,
		TimerMinutes:       source.TimerMinutes,
	}
	if successor.TimerEnabled {
		successor.TimerState = model.TimerIdle
	}
	return successor
}

// SortForDisplay returns a copy of tasks with open work first and resolved
// tasks last, keeping the position order inside each group.
func SortForDisplay(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Status.Resolved(), out[j].Status.Resolved()
		if ri != rj {
			return !ri
		}
		if out[i].TargetDate != out[j].TargetDate {
			return out[i].TargetDate < out[j].TargetDate
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}
