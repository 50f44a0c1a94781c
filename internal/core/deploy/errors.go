// Package deploy contains the deployment configuration value object and its
// construction-time validation. This is part of the Functional Core - all
// functions are pure with no I/O.
package deploy

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Acceleration errors
	ErrInvalidAcceleration  = errors.New("unknown acceleration backend")
	ErrTensorRTRequiresCUDA = errors.New("tensorrt backend requires the CUDA container runtime")
	ErrBackendMismatch      = errors.New("option not valid for the selected acceleration backend")

	// Network errors
	ErrInvalidBindAddress = errors.New("invalid bind address")
	ErrInvalidPort        = errors.New("invalid port")

	// Resource errors
	ErrInvalidGPUCount = errors.New("gpu count must be \"all\" or a positive integer")
	ErrInvalidSize     = errors.New("invalid size value")

	// Image errors
	ErrInvalidImageRef = errors.New("invalid image reference")

	// Filesystem errors
	ErrInvalidModelsDir = errors.New("invalid models directory")

	// Logging errors
	ErrInvalidLogPolicy = errors.New("invalid log rotation policy")
)

// ConfigError wraps errors with context about which option failed validation.
type ConfigError struct {
	Field   string // e.g., "network.port"
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
