package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutofixErrorFormatting(t *testing.T) {
	err := WrapStoreError("grace_check", "disk-cleanup", fmt.Errorf("boom"))
	assert.Equal(t, `grace_check failed for action "disk-cleanup": boom`, err.Error())

	err = WrapConfigError("resolve_config", "thermal", ErrConfigMalformed)
	assert.Equal(t, "resolve_config failed for thermal: config layer malformed", err.Error())
}

func TestAutofixErrorIs(t *testing.T) {
	validation := WrapValidationError("validate_action", "../x", fmt.Errorf("bad name"))
	assert.ErrorIs(t, validation, ErrInvalidIdentifier)
	assert.NotErrorIs(t, validation, ErrNoHandler)

	routing := NewAutofixError(ErrorTypeRouting, "resolve_handler", fmt.Errorf("missing"))
	assert.ErrorIs(t, routing, ErrNoHandler)

	store := WrapStoreError("read_record", "disk-cleanup", fmt.Errorf("wrap: %w", ErrStoreCorrupt))
	assert.ErrorIs(t, store, ErrStoreCorrupt)
}

func TestAutofixErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner")
	err := WrapHandlerError("run_handler", "gpu-restart-nvidia", inner)

	var afErr *AutofixError
	assert.True(t, errors.As(err, &afErr))
	assert.Equal(t, ErrorTypeHandler, afErr.Type)
	assert.Equal(t, inner, errors.Unwrap(afErr))
	assert.False(t, afErr.Timestamp.IsZero())
}

func TestRecoverable(t *testing.T) {
	err := NewAutofixError(ErrorTypeStore, "grace_check", ErrStoreCorrupt).
		WithAction("disk-cleanup").Recoverable()

	assert.True(t, IsRecovered(err))
	assert.False(t, IsRecovered(fmt.Errorf("plain")))
	assert.False(t, IsRecovered(nil))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(WrapValidationError("validate_action", "x y", fmt.Errorf("bad"))))
	assert.True(t, IsValidationError(fmt.Errorf("wrap: %w", ErrInvalidIdentifier)))
	assert.False(t, IsValidationError(WrapStoreError("read", "a", fmt.Errorf("io"))))
	assert.False(t, IsValidationError(nil))
}
