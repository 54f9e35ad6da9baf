package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherFiresOnOverridesChange(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)

	var fired atomic.Int32
	w.SetChangeCallback(func() { fired.Add(1) })

	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, OverridesFile)
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=info\n"), 0o644))

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 25*time.Millisecond)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir)
	require.NoError(t, err)

	var fired atomic.Int32
	w.SetChangeCallback(func() { fired.Add(1) })

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultsFile), []byte("TEMP_WARNING=80\n"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
