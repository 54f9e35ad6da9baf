// Package handlers holds the built-in remediation handlers the checks
// dispatch. Every handler honors the dry-run contract: with Run.DryRun set
// it performs all detection and analysis but mutates nothing, returning a
// description of what it would have done.
package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/hostmend/hostmend/internal/autofix"
)

// DiskCleanup sweeps aged files out of the configured scratch directories.
// Candidates are regular files under DISK_CLEANUP_PATHS older than
// DISK_CLEANUP_MAX_AGE_HOURS. Symlinks are never followed.
func DiskCleanup(ctx context.Context, run *autofix.Run, args []string) (autofix.Result, error) {
	paths := strings.Fields(run.Config.GetString("DISK_CLEANUP_PATHS", "/tmp /var/tmp"))
	maxAge := time.Duration(run.Config.GetInt("DISK_CLEANUP_MAX_AGE_HOURS", 72)) * time.Hour
	if len(args) > 0 {
		paths = args
	}
	if len(paths) == 0 {
		return autofix.Result{Success: false, Detail: "no cleanup paths configured (DISK_CLEANUP_PATHS)"}, nil
	}

	cutoff := time.Now().Add(-maxAge)
	freeBefore := freeBytes(paths[0])

	var candidates []string
	var totalBytes int64
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped, not fatal.
				log.Debug().Str("path", path).Err(err).Msg("Skipping unreadable path during cleanup scan")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().Before(cutoff) {
				candidates = append(candidates, path)
				totalBytes += info.Size()
			}
			return nil
		})
		if err != nil {
			return autofix.Result{}, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	if run.DryRun {
		return autofix.Result{
			Success: true,
			Detail: fmt.Sprintf("would remove %d files (%d bytes) older than %s under %s",
				len(candidates), totalBytes, maxAge, strings.Join(paths, " ")),
		}, nil
	}

	removed := 0
	var lastErr error
	for _, path := range candidates {
		if err := os.Remove(path); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Failed to remove file during cleanup")
			lastErr = err
			continue
		}
		removed++
	}

	freeAfter := freeBytes(paths[0])
	detail := fmt.Sprintf("removed %d/%d files, free space %d -> %d bytes",
		removed, len(candidates), freeBefore, freeAfter)
	if removed == 0 && len(candidates) > 0 {
		return autofix.Result{Success: false, Detail: detail}, lastErr
	}
	return autofix.Result{Success: true, Detail: detail}, nil
}

// freeBytes reports the free bytes on path's filesystem, 0 when unknown.
func freeBytes(path string) int64 {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0
	}
	return int64(st.Bavail) * st.Bsize
}
