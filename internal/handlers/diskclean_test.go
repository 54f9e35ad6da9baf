package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/config"
)

func cleanupRun(t *testing.T, dir string, dryRun bool) *autofix.Run {
	t.Helper()
	cfg := config.NewEffectiveConfig("disk", map[string]string{
		"DISK_CLEANUP_PATHS":         dir,
		"DISK_CLEANUP_MAX_AGE_HOURS": "24",
	})
	return &autofix.Run{Config: cfg, DryRun: dryRun, RequestID: "test"}
}

// agedFile creates a file whose mtime is pushed back far enough to be a
// cleanup candidate.
func agedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestDiskCleanupRemovesAgedFiles(t *testing.T) {
	dir := t.TempDir()
	stale := agedFile(t, dir, "stale.log", 48*time.Hour)
	fresh := filepath.Join(dir, "fresh.log")
	require.NoError(t, os.WriteFile(fresh, []byte("keep"), 0o644))

	result, err := DiskCleanup(context.Background(), cleanupRun(t, dir, false), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestDiskCleanupDryRunMutatesNothing(t *testing.T) {
	dir := t.TempDir()
	stale := agedFile(t, dir, "stale.log", 48*time.Hour)

	result, err := DiskCleanup(context.Background(), cleanupRun(t, dir, true), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Detail, "would remove 1 files")

	assert.FileExists(t, stale)
}

func TestDiskCleanupSkipsSubdirectoriesAndSymlinks(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(sub, old, old))

	target := agedFile(t, dir, "target.log", 48*time.Hour)
	link := filepath.Join(dir, "link.log")
	require.NoError(t, os.Symlink(target, link))
	require.NoError(t, os.Remove(target))

	result, err := DiskCleanup(context.Background(), cleanupRun(t, dir, false), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// The dangling symlink and the directory both survive.
	assert.DirExists(t, sub)
	_, err = os.Lstat(link)
	assert.NoError(t, err)
}

func TestDiskCleanupArgsOverridePaths(t *testing.T) {
	configured := t.TempDir()
	requested := t.TempDir()
	inConfigured := agedFile(t, configured, "a.log", 48*time.Hour)
	inRequested := agedFile(t, requested, "b.log", 48*time.Hour)

	_, err := DiskCleanup(context.Background(), cleanupRun(t, configured, false), []string{requested})
	require.NoError(t, err)

	assert.FileExists(t, inConfigured)
	assert.NoFileExists(t, inRequested)
}
