package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dayrally/internal/clock"
	"dayrally/internal/model"
	"dayrally/internal/repository"
)

type fixture struct {
	tasks    *repository.TaskRepository
	users    *repository.UserRepository
	clock    *clock.Manual
	ordering *OrderingService
	planner  *PlannerService
	timers   *TimerService
	taskSvc  *TaskService
	user     *model.User
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	f := &fixture{
		tasks: repository.NewTaskRepository(db),
		users: repository.NewUserRepository(db),
		clock: clock.NewManual(now),
	}
	categories := repository.NewCategoryRepository(db)
	f.ordering = NewOrderingService(f.tasks)
	f.planner = NewPlannerService(f.tasks, f.users, f.ordering)
	f.timers = NewTimerService(f.tasks, f.clock, nil)
	f.taskSvc = NewTaskService(f.tasks, categories, f.ordering, f.clock, time.UTC, 25)

	f.user, err = f.users.UpsertFromTelegram(context.Background(), 1001, "Test", "", "tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return f
}

func (f *fixture) create(t *testing.T, input TaskInput) *model.Task {
	t.Helper()
	task, err := f.taskSvc.CreateTask(context.Background(), f.user, input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Title, err)
	}
	return task
}

func (f *fixture) reload(t *testing.T, id string) *model.Task {
	t.Helper()
	task, err := f.tasks.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get task %s: %v", id, err)
	}
	return task
}

func (f *fixture) setStatus(t *testing.T, id string, status model.Status) {
	t.Helper()
	if _, err := f.taskSvc.SetStatus(context.Background(), f.user, id, status); err != nil {
		t.Fatalf("set status %s on %s: %v", status, id, err)
	}
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := model.ParseDate(value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return d
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}
