package model

import "time"

// Status is the user-facing progress of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// Resolved reports whether the occurrence is closed (done or skipped).
func (s Status) Resolved() bool {
	return s == StatusDone || s == StatusSkipped
}

// RecurrenceType selects how the next occurrence is derived. Empty means the
// task does not recur.
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = ""
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// TimerState is the countdown lifecycle. Empty is treated as idle.
type TimerState string

const (
	TimerIdle     TimerState = "idle"
	TimerRunning  TimerState = "running"
	TimerPaused   TimerState = "paused"
	TimerFinished TimerState = "finished"
)

// Task is one dated occurrence in the planner.
type Task struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     uint   `gorm:"index;uniqueIndex:idx_task_bucket_order,priority:1"`
	CategoryID *uint  `gorm:"index"`
	Title      string `gorm:"not null"`
	Notes      string
	TargetDate string `gorm:"size:10;not null;index;uniqueIndex:idx_task_bucket_order,priority:2"`
	Status     Status `gorm:"size:16;not null;default:todo;index"`

	IsRecurring        bool           `gorm:"default:false"`
	RecurrenceType     RecurrenceType `gorm:"size:16"`
	RecurrenceInterval int            `gorm:"default:1"`
	RecurrenceWeekdays string
	// SeriesID links all occurrences generated from one recurrence rule.
	SeriesID         *string `gorm:"size:36;uniqueIndex:idx_task_series_occurrence,priority:1"`
	ScheduledDate    string  `gorm:"size:10;uniqueIndex:idx_task_series_occurrence,priority:2"`
	SuccessorSpawned bool    `gorm:"default:false"`

	RolledOver     bool `gorm:"default:false"`
	RolledFromDate *string
	SortOrder      int `gorm:"not null;default:0;uniqueIndex:idx_task_bucket_order,priority:3"`

	TimerEnabled bool `gorm:"default:false"`
	TimerMinutes int
	TimerState   TimerState `gorm:"size:16;index"`
	TimerEndsAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ShortID is the prefix used to address a task from chat and CLI commands.
func (t Task) ShortID() string {
	if len(t.ID) < ShortIDLen {
		return t.ID
	}
	return t.ID[:ShortIDLen]
}

// ShortIDLen is the number of id characters shown to the user.
const ShortIDLen = 8

// EffectiveTimerState folds the empty state into idle.
func (t Task) EffectiveTimerState() TimerState {
	if t.TimerState == "" {
		return TimerIdle
	}
	return t.TimerState
}
