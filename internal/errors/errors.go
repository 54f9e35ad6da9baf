package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNoHandler         = errors.New("no handler available")
	ErrDisabled          = errors.New("autofix disabled")
	ErrGracePeriod       = errors.New("grace period active")
	ErrStoreCorrupt      = errors.New("grace store corrupt")
	ErrConfigUnreadable  = errors.New("config layer unreadable")
	ErrConfigMalformed   = errors.New("config layer malformed")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeStore      ErrorType = "store"
	ErrorTypeHandler    ErrorType = "handler"
	ErrorTypeRouting    ErrorType = "routing"
	ErrorTypeInternal   ErrorType = "internal"
)

// AutofixError is a structured error for engine operations
type AutofixError struct {
	Type      ErrorType
	Op        string // Operation that failed (e.g., "resolve_config", "grace_check")
	Action    string // Action name if applicable
	Component string // Requesting component if applicable
	Err       error  // Underlying error
	Timestamp time.Time
	Recovered bool // true when the engine degraded instead of failing the call
}

func (e *AutofixError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s failed for action %q: %v", e.Op, e.Action, e.Err)
	}
	if e.Component != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Component, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AutofixError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *AutofixError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrInvalidIdentifier:
		return e.Type == ErrorTypeValidation
	case ErrNoHandler:
		return e.Type == ErrorTypeRouting
	case ErrStoreCorrupt:
		return e.Type == ErrorTypeStore
	}

	return errors.Is(e.Err, target)
}

// NewAutofixError creates a new AutofixError
func NewAutofixError(errorType ErrorType, op string, err error) *AutofixError {
	return &AutofixError{
		Type:      errorType,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithAction adds the action name to the error
func (e *AutofixError) WithAction(action string) *AutofixError {
	e.Action = action
	return e
}

// WithComponent adds the requesting component to the error
func (e *AutofixError) WithComponent(component string) *AutofixError {
	e.Component = component
	return e
}

// Recoverable marks the error as degraded-but-continued
func (e *AutofixError) Recoverable() *AutofixError {
	e.Recovered = true
	return e
}

// Helper functions

// WrapValidationError wraps an identifier validation failure with context
func WrapValidationError(op, action string, err error) error {
	return NewAutofixError(ErrorTypeValidation, op, err).WithAction(action)
}

// WrapStoreError wraps a grace store failure with context
func WrapStoreError(op, action string, err error) error {
	return NewAutofixError(ErrorTypeStore, op, err).WithAction(action)
}

// WrapConfigError wraps a configuration layer failure with context
func WrapConfigError(op, component string, err error) error {
	return NewAutofixError(ErrorTypeConfig, op, err).WithComponent(component)
}

// WrapHandlerError wraps a remediation handler failure with context
func WrapHandlerError(op, action string, err error) error {
	return NewAutofixError(ErrorTypeHandler, op, err).WithAction(action)
}

// IsRecovered reports whether the engine degraded rather than failed
func IsRecovered(err error) bool {
	var afErr *AutofixError
	if errors.As(err, &afErr) {
		return afErr.Recovered
	}
	return false
}

// IsValidationError checks if an error is an identifier validation error
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	var afErr *AutofixError
	if errors.As(err, &afErr) && afErr.Type == ErrorTypeValidation {
		return true
	}
	return errors.Is(err, ErrInvalidIdentifier)
}
