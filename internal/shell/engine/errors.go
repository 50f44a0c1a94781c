package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrDaemonUnreachable = errors.New("docker daemon unreachable")
	ErrCommandFailed     = errors.New("engine command failed")
)

// EngineError wraps a failed engine invocation with the operation name and
// the engine's exit code, which the dispatcher propagates verbatim.
type EngineError struct {
	Op       string // bring-up, tear-down, status, pull, logs, exec, ping
	ExitCode int
	Message  string
	Err      error
}

func (e *EngineError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: %s (exit %d)", e.Op, e.Message, e.ExitCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op string, exitCode int, message string, err error) *EngineError {
	return &EngineError{Op: op, ExitCode: exitCode, Message: message, Err: err}
}

// ExitCode extracts the engine exit code from err, or fallback when err
// carries none.
func ExitCode(err error, fallback int) int {
	var engErr *EngineError
	if errors.As(err, &engErr) && engErr.ExitCode != 0 {
		return engErr.ExitCode
	}
	return fallback
}
