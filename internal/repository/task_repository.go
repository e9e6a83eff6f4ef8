package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

// TaskRepository is the durable task store. A repository obtained inside
// Transaction is bound to that transaction.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Transaction runs fn in one database transaction. fn must only use the
// repository it is given; the outer one would wait for the single connection.
func (r *TaskRepository) Transaction(ctx context.Context, fn func(tx *TaskRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx})
	})
	return apperr.Store("transaction", err)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, notFoundOrStore("get task", id, err)
	}
	return &task, nil
}

// GetForUser returns a task only if it belongs to userID.
func (r *TaskRepository) GetForUser(ctx context.Context, userID uint, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&task).Error
	if err != nil {
		return nil, notFoundOrStore("get task", id, err)
	}
	return &task, nil
}

// FindByShortID resolves an id prefix typed by the user.
func (r *TaskRepository) FindByShortID(ctx context.Context, userID uint, prefix string) (*model.Task, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || strings.ContainsAny(prefix, "%_") {
		return nil, apperr.Validation("find task", "invalid task id %q", prefix)
	}
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id LIKE ?", userID, prefix+"%").
		Limit(2).
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.Store("find task", err)
	}
	switch len(tasks) {
	case 0:
		return nil, apperr.NotFound("find task", prefix)
	case 1:
		return &tasks[0], nil
	default:
		return nil, apperr.Validation("find task", "task id %q is ambiguous", prefix)
	}
}

// FindByDateRange lists a user's tasks with from <= target_date <= to, ordered
// by date and position. An empty bound is open.
func (r *TaskRepository) FindByDateRange(ctx context.Context, userID uint, from, to string) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != "" {
		q = q.Where("target_date >= ?", from)
	}
	if to != "" {
		q = q.Where("target_date <= ?", to)
	}
	var tasks []model.Task
	if err := q.Order("target_date ASC, sort_order ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, apperr.Store("find tasks by date", err)
	}
	return tasks, nil
}

// FindUnresolvedBefore lists tasks dated before date that are neither done nor skipped.
func (r *TaskRepository) FindUnresolvedBefore(ctx context.Context, userID uint, date string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_date < ? AND status NOT IN ?", userID, date,
			[]model.Status{model.StatusDone, model.StatusSkipped}).
		Order("target_date ASC, sort_order ASC, created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.Store("find unresolved tasks", err)
	}
	return tasks, nil
}

// FindResolvedRecurring lists resolved recurring occurrences dated on or
// before date that have not produced their successor yet.
func (r *TaskRepository) FindResolvedRecurring(ctx context.Context, userID uint, date string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_recurring = ? AND successor_spawned = ? AND target_date <= ? AND status IN ?",
			userID, true, false, date, []model.Status{model.StatusDone, model.StatusSkipped}).
		Order("target_date ASC, sort_order ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.Store("find resolved recurring tasks", err)
	}
	return tasks, nil
}

// FindRunningTimers lists tasks whose timer is running. userID 0 means every user.
func (r *TaskRepository) FindRunningTimers(ctx context.Context, userID uint) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Where("timer_state = ?", model.TimerRunning)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var tasks []model.Task
	if err := q.Order("timer_ends_at ASC").Find(&tasks).Error; err != nil {
		return nil, apperr.Store("find running timers", err)
	}
	return tasks, nil
}

// ListBucket returns every task of a user's day in position order.
func (r *TaskRepository) ListBucket(ctx context.Context, userID uint, date string) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_date = ?", userID, date).
		Order("sort_order ASC, created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperr.Store("list bucket", err)
	}
	return tasks, nil
}

// MaxSortOrder returns the highest position in a bucket; ok is false when the
// bucket is empty.
func (r *TaskRepository) MaxSortOrder(ctx context.Context, userID uint, date string) (highest int, ok bool, err error) {
	var value sql.NullInt64
	row := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("MAX(sort_order)").
		Where("user_id = ? AND target_date = ?", userID, date).
		Row()
	if err := row.Scan(&value); err != nil {
		return 0, false, apperr.Store("max sort order", err)
	}
	return int(value.Int64), value.Valid, nil
}

// HasOccurrence reports whether a series already has an occurrence scheduled for date.
func (r *TaskRepository) HasOccurrence(ctx context.Context, seriesID, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("series_id = ? AND scheduled_date = ?", seriesID, date).
		Count(&count).Error
	if err != nil {
		return false, apperr.Store("check occurrence", err)
	}
	return count > 0, nil
}

// Insert stores a new task, assigning a fresh id when none is set.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return apperr.E("insert task", apperr.ErrStore, task.ID, err)
	}
	return nil
}

// Update saves every column of task.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Save(task)
	if res.Error != nil {
		return apperr.E("update task", apperr.ErrStore, task.ID, res.Error)
	}
	return nil
}

// SetSortOrder moves one task to a new position without touching other columns.
func (r *TaskRepository) SetSortOrder(ctx context.Context, id string, order int) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return apperr.E("set sort order", apperr.ErrStore, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("set sort order", id)
	}
	return nil
}

// FinishTimer moves a running timer to finished. It reports false when the
// timer was no longer running, so only one caller wins the transition.
func (r *TaskRepository) FinishTimer(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND timer_state = ?", id, model.TimerRunning).
		Updates(map[string]any{
			"timer_state":   model.TimerFinished,
			"timer_ends_at": nil,
		})
	if res.Error != nil {
		return false, apperr.E("finish timer", apperr.ErrStore, id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID uint, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&model.Task{})
	if res.Error != nil {
		return apperr.E("delete task", apperr.ErrStore, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("delete task", id)
	}
	return nil
}

func notFoundOrStore(op, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op, id)
	}
	return apperr.E(op, apperr.ErrStore, id, err)
}
