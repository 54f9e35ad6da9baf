package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveConfigGetters(t *testing.T) {
	cfg := NewEffectiveConfig("disk", map[string]string{
		"STR":      "value",
		"BLANK":    "  ",
		"INT":      "42",
		"BAD_INT":  "forty-two",
		"FLOAT":    "90.5",
		"BOOL_YES": "yes",
		"BOOL_OFF": "off",
		"BOOL_BAD": "maybe",
		"SECONDS":  "300",
		"NEG_SECS": "-5",
	})

	assert.Equal(t, "disk", cfg.Component())

	assert.Equal(t, "value", cfg.GetString("STR", "def"))
	assert.Equal(t, "def", cfg.GetString("BLANK", "def"))
	assert.Equal(t, "def", cfg.GetString("MISSING", "def"))

	assert.Equal(t, 42, cfg.GetInt("INT", 0))
	assert.Equal(t, 7, cfg.GetInt("BAD_INT", 7))
	assert.Equal(t, 7, cfg.GetInt("MISSING", 7))

	assert.InDelta(t, 90.5, cfg.GetFloat("FLOAT", 0), 0.001)
	assert.InDelta(t, 1.5, cfg.GetFloat("MISSING", 1.5), 0.001)

	assert.True(t, cfg.GetBool("BOOL_YES", false))
	assert.False(t, cfg.GetBool("BOOL_OFF", true))
	assert.True(t, cfg.GetBool("BOOL_BAD", true))
	assert.False(t, cfg.GetBool("MISSING", false))

	assert.Equal(t, 300*time.Second, cfg.GetDurationSeconds("SECONDS", time.Minute))
	assert.Equal(t, time.Minute, cfg.GetDurationSeconds("NEG_SECS", time.Minute))
	assert.Equal(t, time.Minute, cfg.GetDurationSeconds("MISSING", time.Minute))
}

func TestEffectiveConfigKeysSorted(t *testing.T) {
	cfg := NewEffectiveConfig("", map[string]string{"B": "2", "A": "1", "C": "3"})
	assert.Equal(t, []string{"A", "B", "C"}, cfg.Keys())
}

func TestEffectiveConfigIsValueObject(t *testing.T) {
	source := map[string]string{"KEY": "original"}
	cfg := NewEffectiveConfig("", source)

	source["KEY"] = "mutated"
	assert.Equal(t, "original", cfg.GetString("KEY", ""))
}

func TestDryRunDefaultsFalse(t *testing.T) {
	cfg := NewEffectiveConfig("", nil)
	assert.False(t, cfg.DryRun())

	cfg = NewEffectiveConfig("", map[string]string{KeyDryRun: "true"})
	assert.True(t, cfg.DryRun())
}
