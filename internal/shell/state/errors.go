package state

import (
	"errors"
	"fmt"
)

var (
	ErrDirCreateFailed = errors.New("directory creation failed")
	ErrOwnerUnknown    = errors.New("service account not found")
	ErrSyncFailed      = errors.New("definition sync failed")
)

// StateError wraps filesystem errors with the operation and path involved.
type StateError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *StateError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NewStateError creates a new StateError.
func NewStateError(op, path, message string, err error) *StateError {
	return &StateError{Op: op, Path: path, Message: message, Err: err}
}
