// Package apperr defines the error kinds shared by the planner engine and its
// storage layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced task (or other record) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation is not allowed in the record's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation means the input was rejected before any write happened.
	ErrValidation = errors.New("validation failed")
	// ErrStore wraps failures of the underlying transactional storage.
	ErrStore = errors.New("store failure")
)

// Error carries the operation and task that failed together with its kind.
type Error struct {
	Op     string
	TaskID string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.TaskID != "" {
		msg += " " + e.TaskID
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. err may be nil.
func E(op string, kind error, taskID string, err error) error {
	return &Error{Op: op, TaskID: taskID, Kind: kind, Err: err}
}

// NotFound reports a missing task.
func NotFound(op, taskID string) error {
	return &Error{Op: op, TaskID: taskID, Kind: ErrNotFound}
}

// InvalidState reports a disallowed transition.
func InvalidState(op, taskID, reason string) error {
	return &Error{Op: op, TaskID: taskID, Kind: ErrInvalidState, Err: errors.New(reason)}
}

// Validation reports rejected input.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// Store wraps a storage error. Errors that already carry a kind pass through.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Op: op, Kind: ErrStore, Err: err}
}
