package store

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailed = errors.New("store connection failed")
	ErrMigrationFailed  = errors.New("store migration failed")
	ErrQueryFailed      = errors.New("store query failed")
)

// StoreError wraps errors with the operation that failed.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, message string, err error) *StoreError {
	return &StoreError{Op: op, Message: message, Err: err}
}
