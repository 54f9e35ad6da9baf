package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestResolver returns a resolver over a temp config dir with a
// controlled environment.
func newTestResolver(t *testing.T, environ []string) (*Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	r := NewResolver(dir)
	r.environ = func() []string { return environ }
	return r, dir
}

func writeLayer(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveDefaultsOnly(t *testing.T) {
	r, _ := newTestResolver(t, nil)

	cfg := r.Resolve("")
	assert.Equal(t, "true", cfg.GetString(KeyAutofixEnabled, ""))
	assert.Equal(t, "80", cfg.GetString("TEMP_WARNING", ""))
}

func TestResolveLayerPrecedence(t *testing.T) {
	r, dir := newTestResolver(t, nil)
	writeLayer(t, filepath.Join(dir, DefaultsFile), "TEMP_WARNING=75\nEXTRA=from-defaults\n")
	writeLayer(t, filepath.Join(dir, ComponentsDir, "thermal.env"), "TEMP_WARNING=78\n")
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=82\n")

	// Machine overrides beat component defaults beat shipped defaults.
	cfg := r.Resolve("thermal")
	assert.Equal(t, "82", cfg.GetString("TEMP_WARNING", ""))
	assert.Equal(t, "from-defaults", cfg.GetString("EXTRA", ""))

	// Without the component, the component layer never applies.
	cfgNoComponent := r.Resolve("")
	assert.Equal(t, "82", cfgNoComponent.GetString("TEMP_WARNING", ""))
}

func TestResolveEnvironmentAlwaysWins(t *testing.T) {
	// MachineOverrides sets TEMP_WARNING=80, environment sets 70:
	// the environment value must survive the merge.
	r, dir := newTestResolver(t, []string{"TEMP_WARNING=70"})
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=80\n")

	cfg := r.Resolve("")
	assert.Equal(t, 70, cfg.GetInt("TEMP_WARNING", 0))
}

func TestResolveEnvironmentWinsOverEveryLayer(t *testing.T) {
	r, dir := newTestResolver(t, []string{"TEMP_WARNING=70"})
	writeLayer(t, filepath.Join(dir, DefaultsFile), "TEMP_WARNING=60\n")
	writeLayer(t, filepath.Join(dir, ComponentsDir, "thermal.env"), "TEMP_WARNING=65\n")
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=80\n")

	cfg := r.Resolve("thermal")
	assert.Equal(t, "70", cfg.GetString("TEMP_WARNING", ""))
}

func TestResolveEnvironmentSurvivesRepeatedResolves(t *testing.T) {
	r, dir := newTestResolver(t, []string{"TEMP_WARNING=70"})
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=80\n")

	for i := 0; i < 3; i++ {
		cfg := r.Resolve("")
		assert.Equal(t, "70", cfg.GetString("TEMP_WARNING", ""), "resolve %d", i)
	}
}

func TestResolvePrefixedEnvironmentKeys(t *testing.T) {
	// HOSTMEND_-prefixed variables are recognized even when no layer
	// defines the key; the prefix is stripped.
	r, _ := newTestResolver(t, []string{"HOSTMEND_CUSTOM_LIMIT=42"})

	cfg := r.Resolve("")
	assert.Equal(t, 42, cfg.GetInt("CUSTOM_LIMIT", 0))
}

func TestResolveUnrecognizedEnvironmentIgnored(t *testing.T) {
	r, _ := newTestResolver(t, []string{"RANDOM_HOST_VAR=oops"})

	cfg := r.Resolve("")
	_, ok := cfg.Get("RANDOM_HOST_VAR")
	assert.False(t, ok, "unrecognized environment keys must not leak into the config")
}

func TestResolveEngineKeysFromEnvironment(t *testing.T) {
	r, _ := newTestResolver(t, []string{"AUTOFIX_ENABLED=false", "DRY_RUN=true"})

	cfg := r.Resolve("")
	assert.False(t, cfg.GetBool(KeyAutofixEnabled, true))
	assert.True(t, cfg.DryRun())
}

func TestResolveMissingLayerIsEmpty(t *testing.T) {
	r, _ := newTestResolver(t, nil)

	// No layer file exists at all; the shipped defaults carry the result.
	cfg := r.Resolve("disk")
	assert.Equal(t, "true", cfg.GetString(KeyAutofixEnabled, ""))
}

func TestResolveMalformedLayerSkipped(t *testing.T) {
	r, dir := newTestResolver(t, nil)
	writeLayer(t, filepath.Join(dir, DefaultsFile), "GOOD_KEY=ok\n")
	writeLayer(t, filepath.Join(dir, OverridesFile), "not a parsable line %%%\n")

	cfg := r.Resolve("")
	assert.Equal(t, "ok", cfg.GetString("GOOD_KEY", ""), "a malformed layer must not poison the merge")
}

func TestResolveInvalidComponentSkipsLayer(t *testing.T) {
	r, dir := newTestResolver(t, nil)
	writeLayer(t, filepath.Join(dir, ComponentsDir, "thermal.env"), "TEMP_WARNING=55\n")

	// Path traversal in the component name must never reach the filesystem.
	cfg := r.Resolve("../thermal")
	assert.Equal(t, "80", cfg.GetString("TEMP_WARNING", ""))
}

func TestResolveReturnsFreshSnapshot(t *testing.T) {
	r, dir := newTestResolver(t, nil)
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=81\n")

	first := r.Resolve("")
	require.Equal(t, "81", first.GetString("TEMP_WARNING", ""))

	// Edits to the overrides file take effect on the next resolve.
	writeLayer(t, filepath.Join(dir, OverridesFile), "TEMP_WARNING=85\n")
	second := r.Resolve("")
	assert.Equal(t, "85", second.GetString("TEMP_WARNING", ""))
	assert.Equal(t, "81", first.GetString("TEMP_WARNING", ""), "earlier snapshots must not change")
}
