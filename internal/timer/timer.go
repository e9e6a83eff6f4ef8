// Package timer implements the per-task countdown lifecycle. The deadline is
// stored as an absolute timestamp and remaining time is always recomputed
// from the wall clock, so a timer survives restarts and sleep/wake.
package timer

import (
	"time"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

// State is the effective lifecycle state, including the disabled pseudo-state.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// StateOf reports the effective timer state of a task.
func StateOf(t *model.Task) State {
	if !t.TimerEnabled {
		return StateDisabled
	}
	switch t.EffectiveTimerState() {
	case model.TimerRunning:
		return StateRunning
	case model.TimerPaused:
		return StatePaused
	case model.TimerFinished:
		return StateFinished
	default:
		return StateIdle
	}
}

// Start moves the timer to running with a deadline timer_minutes from now.
// Idle, paused and finished timers all restart from the full duration.
func Start(t *model.Task, now time.Time) error {
	switch StateOf(t) {
	case StateDisabled:
		return apperr.InvalidState("start timer", t.ID, "timer is not enabled for this task")
	case StateRunning:
		return apperr.InvalidState("start timer", t.ID, "timer is already running")
	}
	if t.TimerMinutes < 1 {
		return apperr.Validation("start timer", "timer minutes must be at least 1, got %d", t.TimerMinutes)
	}
	endsAt := now.Add(time.Duration(t.TimerMinutes) * time.Minute).UTC()
	t.TimerState = model.TimerRunning
	t.TimerEndsAt = &endsAt
	return nil
}

// Stop returns a running (or paused) timer to idle. It reports false and
// leaves the task untouched when there was nothing to stop.
func Stop(t *model.Task) bool {
	switch t.EffectiveTimerState() {
	case model.TimerRunning, model.TimerPaused:
		t.TimerState = model.TimerIdle
		t.TimerEndsAt = nil
		return true
	}
	return false
}

// Observation is the result of looking at a timer at a given instant.
type Observation struct {
	State     State
	Remaining time.Duration
	// Expired is true only for the observation that moved the timer from
	// running to finished.
	Expired bool
}

// RemainingSeconds rounds the remaining time up so a timer with any time left
// never reports zero.
func (o Observation) RemainingSeconds() int64 {
	secs := int64(o.Remaining / time.Second)
	if o.Remaining%time.Second > 0 {
		secs++
	}
	return secs
}

// Observe computes the remaining time. A running timer whose deadline has
// passed is moved to finished as a side effect of the observation.
func Observe(t *model.Task, now time.Time) Observation {
	state := StateOf(t)
	if state != StateRunning || t.TimerEndsAt == nil {
		return Observation{State: state}
	}
	remaining := t.TimerEndsAt.Sub(now)
	if remaining > 0 {
		return Observation{State: StateRunning, Remaining: remaining}
	}
	t.TimerState = model.TimerFinished
	t.TimerEndsAt = nil
	return Observation{State: StateFinished, Expired: true}
}
