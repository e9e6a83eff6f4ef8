package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"dayrally/internal/apperr"
	"dayrally/internal/clock"
	"dayrally/internal/model"
	"dayrally/internal/recurrence"
	"dayrally/internal/repository"
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	Title    string
	Notes    string
	Category string
	// TargetDate is YYYY-MM-DD; empty means today.
	TargetDate string

	IsRecurring        bool
	RecurrenceType     model.RecurrenceType
	RecurrenceInterval int
	// RecurrenceWeekdays is a comma separated list such as "Mon,Fri".
	RecurrenceWeekdays string

	TimerEnabled bool
	// TimerMinutes of 0 picks the configured default.
	TimerMinutes int
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo     *repository.TaskRepository
	categoryRepo *repository.CategoryRepository
	ordering     *OrderingService
	clock        clock.Clock
	loc          *time.Location

	defaultTimerMinutes int
}

func NewTaskService(taskRepo *repository.TaskRepository, categoryRepo *repository.CategoryRepository, ordering *OrderingService, clk clock.Clock, loc *time.Location, defaultTimerMinutes int) *TaskService {
	if clk == nil {
		clk = clock.Real{}
	}
	if loc == nil {
		loc = time.Local
	}
	if defaultTimerMinutes < 1 {
		defaultTimerMinutes = 25
	}
	return &TaskService{
		taskRepo:            taskRepo,
		categoryRepo:        categoryRepo,
		ordering:            ordering,
		clock:               clk,
		loc:                 loc,
		defaultTimerMinutes: defaultTimerMinutes,
	}
}

// Today is the current calendar date in the planner's time zone.
func (s *TaskService) Today() time.Time {
	return s.clock.Now().In(s.loc)
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	input, err := s.normalize("create task", input)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, user, input.Category)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:     user.ID,
		CategoryID: categoryID,
		Title:      input.Title,
		Notes:      input.Notes,
		TargetDate: input.TargetDate,
		Status:     model.StatusTodo,
	}
	applyRecurrence(&task, input)
	applyTimer(&task, input)

	err = s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		pos, err := s.ordering.Append(ctx, tx, BucketKey{UserID: user.ID, Date: task.TargetDate})
		if err != nil {
			return err
		}
		task.SortOrder = pos
		return tx.Insert(ctx, &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask replaces the editable fields of a task. A new date moves the task
// to the end of that day and clears its rollover marks. A rule change affects
// the occurrences spawned after it.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID string, input TaskInput) (*model.Task, error) {
	input, err := s.normalize("update task", input)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, user, input.Category)
	if err != nil {
		return nil, err
	}

	var updated *model.Task
	err = s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, user.ID, taskID)
		if err != nil {
			return err
		}
		task.Title = input.Title
		task.Notes = input.Notes
		task.CategoryID = categoryID

		if input.TargetDate != task.TargetDate {
			pos, err := s.ordering.Append(ctx, tx, BucketKey{UserID: user.ID, Date: input.TargetDate})
			if err != nil {
				return err
			}
			// ScheduledDate is the occurrence's slot in its series and stays put.
			task.TargetDate = input.TargetDate
			task.SortOrder = pos
			task.RolledOver = false
			task.RolledFromDate = nil
		}
		applyRecurrence(task, input)
		applyTimer(task, input)

		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetStatus changes the progress of a task. Resolving it stops a running timer.
func (s *TaskService) SetStatus(ctx context.Context, user *model.User, taskID string, status model.Status) (*model.Task, error) {
	if !status.Valid() {
		return nil, apperr.Validation("set status", "unknown status %q", status)
	}
	var updated *model.Task
	err := s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, user.ID, taskID)
		if err != nil {
			return err
		}
		task.Status = status
		if status.Resolved() && task.EffectiveTimerState() == model.TimerRunning {
			task.TimerState = model.TimerIdle
			task.TimerEndsAt = nil
		}
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID string) (*model.Task, error) {
	return s.taskRepo.GetForUser(ctx, user.ID, taskID)
}

// EditInput returns the current editable fields of a task, ready to be
// changed and passed to UpdateTask.
func (s *TaskService) EditInput(ctx context.Context, user *model.User, task *model.Task) (TaskInput, error) {
	input := TaskInput{
		Title:              task.Title,
		Notes:              task.Notes,
		TargetDate:         task.TargetDate,
		IsRecurring:        task.IsRecurring,
		RecurrenceType:     task.RecurrenceType,
		RecurrenceInterval: task.RecurrenceInterval,
		RecurrenceWeekdays: task.RecurrenceWeekdays,
		TimerEnabled:       task.TimerEnabled,
		TimerMinutes:       task.TimerMinutes,
	}
	if task.CategoryID != nil {
		category, err := s.categoryRepo.GetByID(ctx, *task.CategoryID)
		if err != nil {
			return input, err
		}
		if category.UserID == user.ID {
			input.Category = category.Name
		}
	}
	return input, nil
}

// FindByShortID resolves the id a user typed: a full id or its short prefix.
func (s *TaskService) FindByShortID(ctx context.Context, user *model.User, ref string) (*model.Task, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) > model.ShortIDLen {
		return s.taskRepo.GetForUser(ctx, user.ID, ref)
	}
	return s.taskRepo.FindByShortID(ctx, user.ID, ref)
}

// DeleteTask removes a task. The gap it leaves in its bucket is harmless.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID string) error {
	return s.taskRepo.Delete(ctx, user.ID, taskID)
}

// normalize checks input before anything is written and fills defaults.
func (s *TaskService) normalize(op string, input TaskInput) (TaskInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Notes = strings.TrimSpace(input.Notes)
	input.Category = strings.TrimSpace(input.Category)
	if input.Title == "" {
		return input, apperr.Validation(op, "title is required")
	}

	if input.TargetDate == "" {
		input.TargetDate = model.FormatDate(s.Today())
	} else {
		d, err := model.ParseDate(strings.TrimSpace(input.TargetDate))
		if err != nil {
			return input, apperr.Validation(op, "invalid date %q, expected YYYY-MM-DD", input.TargetDate)
		}
		input.TargetDate = model.FormatDate(d)
	}

	if input.IsRecurring {
		if input.RecurrenceInterval == 0 {
			input.RecurrenceInterval = 1
		}
		days, err := recurrence.ParseWeekdays(input.RecurrenceWeekdays)
		if err != nil {
			return input, err
		}
		rule := recurrence.Rule{Type: input.RecurrenceType, Interval: input.RecurrenceInterval, Weekdays: days}
		if err := rule.Validate(); err != nil {
			return input, err
		}
		input.RecurrenceWeekdays = recurrence.FormatWeekdays(days)
	}

	if input.TimerEnabled {
		switch {
		case input.TimerMinutes == 0:
			input.TimerMinutes = s.defaultTimerMinutes
		case input.TimerMinutes < 0:
			return input, apperr.Validation(op, "timer minutes must be at least 1, got %d", input.TimerMinutes)
		}
	}
	return input, nil
}

func (s *TaskService) resolveCategory(ctx context.Context, user *model.User, name string) (*uint, error) {
	if name == "" {
		return nil, nil
	}
	category, err := s.categoryRepo.GetOrCreate(ctx, user.ID, name)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, nil
	}
	return &category.ID, nil
}

func applyRecurrence(task *model.Task, input TaskInput) {
	if !input.IsRecurring {
		task.IsRecurring = false
		task.RecurrenceType = model.RecurrenceNone
		task.RecurrenceInterval = 1
		task.RecurrenceWeekdays = ""
		task.SeriesID = nil
		task.SuccessorSpawned = false
		return
	}
	task.IsRecurring = true
	task.RecurrenceType = input.RecurrenceType
	task.RecurrenceInterval = input.RecurrenceInterval
	task.RecurrenceWeekdays = input.RecurrenceWeekdays
	if task.SeriesID == nil {
		series := uuid.NewString()
		task.SeriesID = &series
	}
	if task.ScheduledDate == "" {
		task.ScheduledDate = task.TargetDate
	}
}

func applyTimer(task *model.Task, input TaskInput) {
	if !input.TimerEnabled {
		task.TimerEnabled = false
		task.TimerMinutes = 0
		task.TimerState = ""
		task.TimerEndsAt = nil
		return
	}
	task.TimerEnabled = true
	task.TimerMinutes = input.TimerMinutes
	if task.TimerState == "" {
		task.TimerState = model.TimerIdle
	}
}
