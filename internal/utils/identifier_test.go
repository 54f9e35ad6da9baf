package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hostmend/hostmend/internal/errors"
)

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{
		"thermal",
		"gpu-restart-nvidia",
		"emergency_process_kill",
		"Check01",
		"a",
	}
	for _, name := range valid {
		assert.True(t, IsValidIdentifier(name), "expected valid: %q", name)
	}

	invalid := []string{
		"",
		"../../etc/passwd",
		"thermal check",
		"check;reboot",
		"$(whoami)",
		"nul\x00l",
		"über-check",
		"check.sh",
		"check\n",
	}
	for _, name := range invalid {
		assert.False(t, IsValidIdentifier(name), "expected invalid: %q", name)
	}
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("action", "disk-cleanup"))

	err := ValidateIdentifier("action", "../escape")
	assert.ErrorIs(t, err, errors.ErrInvalidIdentifier)
	assert.True(t, errors.IsValidationError(err))
	assert.True(t, strings.Contains(err.Error(), "action"))
}
