package utils

import (
	"fmt"

	"github.com/hostmend/hostmend/internal/errors"
)

// IsValidIdentifier reports whether name matches the restricted grammar
// [A-Za-z0-9_-]+ used for action, variant, and component names. Names are
// used as storage keys and file names, so anything outside the grammar is
// rejected outright instead of sanitized.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// ValidateIdentifier returns ErrInvalidIdentifier when name fails the
// restricted grammar. The offending value is included for the operator.
func ValidateIdentifier(kind, name string) error {
	if IsValidIdentifier(name) {
		return nil
	}
	return errors.WrapValidationError("validate_"+kind, name,
		fmt.Errorf("%w: %s name %q contains characters outside [A-Za-z0-9_-]", errors.ErrInvalidIdentifier, kind, name))
}
