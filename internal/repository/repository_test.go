package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

func newTestRepos(t *testing.T) (*TaskRepository, *UserRepository, *CategoryRepository, *model.User) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	users := NewUserRepository(db)
	user, err := users.UpsertFromTelegram(context.Background(), 500, "Ann", "", "ann")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return NewTaskRepository(db), users, NewCategoryRepository(db), user
}

func TestWithBusyTimeout(t *testing.T) {
	cases := map[string]string{
		"planner.db":                   "planner.db?_busy_timeout=5000",
		"file:planner.db?cache=shared": "file:planner.db?cache=shared&_busy_timeout=5000",
		"planner.db?_busy_timeout=10":  "planner.db?_busy_timeout=10",
	}
	for in, want := range cases {
		if got := withBusyTimeout(in); got != want {
			t.Errorf("withBusyTimeout(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBucketOrderIsUnique(t *testing.T) {
	tasks, _, _, user := newTestRepos(t)
	ctx := context.Background()

	first := &model.Task{UserID: user.ID, Title: "a", TargetDate: "2024-01-01", Status: model.StatusTodo, SortOrder: 0}
	if err := tasks.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}
	clash := &model.Task{UserID: user.ID, Title: "b", TargetDate: "2024-01-01", Status: model.StatusTodo, SortOrder: 0}
	err := tasks.Insert(ctx, clash)
	if !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("duplicate position: err = %v, want store error", err)
	}

	other := &model.Task{UserID: user.ID, Title: "c", TargetDate: "2024-01-02", Status: model.StatusTodo, SortOrder: 0}
	if err := tasks.Insert(ctx, other); err != nil {
		t.Fatalf("same position on another day: %v", err)
	}

	highest, ok, err := tasks.MaxSortOrder(ctx, user.ID, "2024-01-01")
	if err != nil || !ok || highest != 0 {
		t.Fatalf("MaxSortOrder = %d, %v, %v", highest, ok, err)
	}
	if _, ok, err := tasks.MaxSortOrder(ctx, user.ID, "2030-01-01"); err != nil || ok {
		t.Fatalf("empty bucket MaxSortOrder ok=%v err=%v", ok, err)
	}
}

func TestSeriesOccurrenceIsUnique(t *testing.T) {
	tasks, _, _, user := newTestRepos(t)
	ctx := context.Background()
	series := "series-1"

	occ := &model.Task{UserID: user.ID, Title: "gym", TargetDate: "2024-01-01", ScheduledDate: "2024-01-01",
		SeriesID: &series, IsRecurring: true, RecurrenceType: model.RecurrenceDaily, RecurrenceInterval: 1, Status: model.StatusTodo}
	if err := tasks.Insert(ctx, occ); err != nil {
		t.Fatal(err)
	}
	found, err := tasks.HasOccurrence(ctx, series, "2024-01-01")
	if err != nil || !found {
		t.Fatalf("HasOccurrence = %v, %v", found, err)
	}

	dup := *occ
	dup.ID = ""
	dup.SortOrder = 1
	if err := tasks.Insert(ctx, &dup); !errors.Is(err, apperr.ErrStore) {
		t.Fatalf("second occurrence for the same date: err = %v", err)
	}
}

func TestFinishTimerHasOneWinner(t *testing.T) {
	tasks, _, _, user := newTestRepos(t)
	ctx := context.Background()

	task := &model.Task{UserID: user.ID, Title: "focus", TargetDate: "2024-01-01", Status: model.StatusTodo,
		TimerEnabled: true, TimerMinutes: 25, TimerState: model.TimerRunning}
	if err := tasks.Insert(ctx, task); err != nil {
		t.Fatal(err)
	}
	won, err := tasks.FinishTimer(ctx, task.ID)
	if err != nil || !won {
		t.Fatalf("first FinishTimer = %v, %v", won, err)
	}
	won, err = tasks.FinishTimer(ctx, task.ID)
	if err != nil || won {
		t.Fatalf("second FinishTimer = %v, %v", won, err)
	}
	got, err := tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TimerState != model.TimerFinished || got.TimerEndsAt != nil {
		t.Errorf("timer after finish = %s, %v", got.TimerState, got.TimerEndsAt)
	}
}

func TestNotFoundErrors(t *testing.T) {
	tasks, users, categories, user := newTestRepos(t)
	ctx := context.Background()

	if _, err := tasks.Get(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get: %v", err)
	}
	if err := tasks.Delete(ctx, user.ID, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
	if err := tasks.SetSortOrder(ctx, "missing", 3); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetSortOrder: %v", err)
	}
	if _, err := users.FindByTelegramID(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FindByTelegramID: %v", err)
	}
	if _, err := categories.GetByID(ctx, 12345); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID: %v", err)
	}
}

func TestCategoryGetOrCreate(t *testing.T) {
	_, _, categories, user := newTestRepos(t)
	ctx := context.Background()

	none, err := categories.GetOrCreate(ctx, user.ID, "  ")
	if err != nil || none != nil {
		t.Fatalf("blank name = %+v, %v", none, err)
	}
	first, err := categories.GetOrCreate(ctx, user.ID, "Work")
	if err != nil {
		t.Fatal(err)
	}
	again, err := categories.GetOrCreate(ctx, user.ID, " Work ")
	if err != nil || again.ID != first.ID {
		t.Fatalf("second GetOrCreate = %+v, %v", again, err)
	}
	names, err := categories.NamesByUser(ctx, user.ID)
	if err != nil || names[first.ID] != "Work" {
		t.Fatalf("NamesByUser = %v, %v", names, err)
	}
}
