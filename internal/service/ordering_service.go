package service

import (
	"context"
	"strings"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
	"dayrally/internal/repository"
)

// Direction of a single-step move inside a bucket.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up"/"down" in any case.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	}
	return "", apperr.Validation("move task", "invalid move direction %q", value)
}

// BucketKey identifies one ordered bucket: every task of a user dated on a
// given day, rolled-over tasks included.
type BucketKey struct {
	UserID uint
	Date   string
}

// parkedSortOrder is a position no settled task holds; a swap parks one task
// there so the unique (user, date, position) index holds after each statement.
const parkedSortOrder = -1

// OrderingService keeps sort positions unique inside each bucket.
type OrderingService struct {
	tasks *repository.TaskRepository
}

func NewOrderingService(tasks *repository.TaskRepository) *OrderingService {
	return &OrderingService{tasks: tasks}
}

// Append returns the position for a task entering the bucket: one past the
// current maximum, or 0 for an empty bucket. It must run on the repository of
// the caller's transaction.
func (s *OrderingService) Append(ctx context.Context, tx *repository.TaskRepository, key BucketKey) (int, error) {
	highest, ok, err := tx.MaxSortOrder(ctx, key.UserID, key.Date)
	if err != nil {
		return 0, err
	}
	if !ok || highest < 0 {
		return 0, nil
	}
	return highest + 1, nil
}

// Move swaps a task with its neighbour in the given direction. Rolled-over
// and regular tasks share a bucket but are listed separately, so the
// neighbour is the nearest task of the same kind. Moving the first task up or
// the last task down does nothing.
func (s *OrderingService) Move(ctx context.Context, userID uint, taskID string, dir Direction) error {
	if dir != DirectionUp && dir != DirectionDown {
		return apperr.Validation("move task", "invalid move direction %q", dir)
	}
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}
		bucket, err := tx.ListBucket(ctx, userID, task.TargetDate)
		if err != nil {
			return err
		}

		idx := indexOf(bucket, task.ID)
		if idx < 0 {
			return apperr.InvalidState("move task", task.ID, "task is missing from its bucket")
		}
		neighbour := sectionNeighbour(bucket, idx, dir)
		if neighbour < 0 {
			return nil
		}

		own, other := bucket[idx].SortOrder, bucket[neighbour].SortOrder
		if err := tx.SetSortOrder(ctx, task.ID, parkedSortOrder); err != nil {
			return err
		}
		if err := tx.SetSortOrder(ctx, bucket[neighbour].ID, own); err != nil {
			return err
		}
		return tx.SetSortOrder(ctx, task.ID, other)
	})
}

// Reorder assigns positions 0..n-1 following ids, which must be exactly the
// bucket's current members.
func (s *OrderingService) Reorder(ctx context.Context, key BucketKey, ids []string) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		bucket, err := tx.ListBucket(ctx, key.UserID, key.Date)
		if err != nil {
			return err
		}
		if err := sameMembers(bucket, ids); err != nil {
			return err
		}
		return renumber(ctx, tx, ids)
	})
}

// Compact renumbers a bucket to 0..n-1 keeping its current order, closing
// gaps left by tasks that moved away.
func (s *OrderingService) Compact(ctx context.Context, key BucketKey) error {
	return s.tasks.Transaction(ctx, func(tx *repository.TaskRepository) error {
		bucket, err := tx.ListBucket(ctx, key.UserID, key.Date)
		if err != nil {
			return err
		}
		ids := make([]string, len(bucket))
		for i, task := range bucket {
			ids[i] = task.ID
		}
		return renumber(ctx, tx, ids)
	})
}

// renumber writes negative positions first so the final pass never collides
// with a value still held by another member.
func renumber(ctx context.Context, tx *repository.TaskRepository, ids []string) error {
	for i, id := range ids {
		if err := tx.SetSortOrder(ctx, id, -(i + 1)); err != nil {
			return err
		}
	}
	for i, id := range ids {
		if err := tx.SetSortOrder(ctx, id, i); err != nil {
			return err
		}
	}
	return nil
}

func sameMembers(bucket []model.Task, ids []string) error {
	if len(ids) != len(bucket) {
		return apperr.Validation("reorder bucket", "expected %d task ids, got %d", len(bucket), len(ids))
	}
	members := make(map[string]bool, len(bucket))
	for _, task := range bucket {
		members[task.ID] = false
	}
	for _, id := range ids {
		seen, ok := members[id]
		if !ok {
			return apperr.Validation("reorder bucket", "task %s is not in this bucket", id)
		}
		if seen {
			return apperr.Validation("reorder bucket", "task %s listed twice", id)
		}
		members[id] = true
	}
	return nil
}

// sectionNeighbour is the index of the closest task past idx in direction dir
// with the same rollover mark, or -1.
func sectionNeighbour(bucket []model.Task, idx int, dir Direction) int {
	step := -1
	if dir == DirectionDown {
		step = 1
	}
	for i := idx + step; i >= 0 && i < len(bucket); i += step {
		if bucket[i].RolledOver == bucket[idx].RolledOver {
			return i
		}
	}
	return -1
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
