package grace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/errors"
	"github.com/hostmend/hostmend/internal/metrics"
	"github.com/hostmend/hostmend/internal/utils"
)

// FileStore keeps one indented JSON file per action under Dir. Records are
// written via temp file + rename so concurrent readers never see a torn file;
// the overwrite itself stays last-writer-wins.
type FileStore struct {
	dir string

	// now overrides time.Now for tests.
	now func() time.Time
}

// NewFileStore creates the store directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("grace store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create grace store directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) recordPath(action string) string {
	return filepath.Join(s.dir, action+".json")
}

// Check implements Store.
func (s *FileStore) Check(action string, monitorInterval time.Duration) (Status, error) {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return Status{}, err
	}

	rec, err := s.readRecord(action)
	if err != nil {
		// Fail open: a corrupt record must not block remediation.
		log.Warn().Str("action", action).Err(err).
			Msg("Grace record unreadable, treating as expired")
		return Status{}, nil
	}
	if rec == nil {
		return Status{}, nil
	}

	left := remaining(rec, monitorInterval, s.now())
	if left > 0 {
		return Status{InGracePeriod: true, Remaining: left, Record: rec}, nil
	}
	return Status{Record: rec}, nil
}

// Start implements Store.
func (s *FileStore) Start(action string, cooldown time.Duration, requestedBy string) error {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return err
	}

	rec := Record{
		Action:          action,
		StartedAt:       s.now().UTC(),
		RequestedBy:     requestedBy,
		CooldownSeconds: int(cooldown / time.Second),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.WrapStoreError("grace_start", action, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+action+"-*.tmp")
	if err != nil {
		return errors.WrapStoreError("grace_start", action, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.WrapStoreError("grace_start", action, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.WrapStoreError("grace_start", action, err)
	}
	if err := os.Rename(tmpPath, s.recordPath(action)); err != nil {
		os.Remove(tmpPath)
		return errors.WrapStoreError("grace_start", action, err)
	}

	log.Debug().Str("action", action).Str("requestedBy", requestedBy).
		Dur("cooldown", cooldown).Msg("Grace record written")
	return nil
}

// Cleanup implements Store. Records older than retention are removed based
// on their started_at stamp, falling back to file mod time for unreadable
// records so corrupt files cannot linger forever.
func (s *FileStore) Cleanup(retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.now().Add(-retention)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.WrapStoreError("grace_cleanup", "", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.dir, name)

		stale := false
		if rec, err := s.readRecordFile(path); err == nil && rec != nil {
			stale = rec.StartedAt.Before(cutoff)
		} else if info, statErr := entry.Info(); statErr == nil {
			stale = info.ModTime().Before(cutoff)
		}

		if stale {
			if err := os.Remove(path); err != nil {
				log.Warn().Str("path", path).Err(err).Msg("Failed to remove stale grace record")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		metrics.GraceRecordsCleaned.Add(float64(removed))
		log.Debug().Int("removed", removed).Msg("Cleaned up stale grace records")
	}
	return nil
}

// List implements Store. Unreadable records are skipped with a warning.
func (s *FileStore) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.WrapStoreError("grace_list", "", err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.readRecordFile(filepath.Join(s.dir, name))
		if err != nil || rec == nil {
			if err != nil {
				log.Warn().Str("file", name).Err(err).Msg("Skipping unreadable grace record")
			}
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Remove implements Store.
func (s *FileStore) Remove(action string) error {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return err
	}
	if err := os.Remove(s.recordPath(action)); err != nil && !os.IsNotExist(err) {
		return errors.WrapStoreError("grace_remove", action, err)
	}
	return nil
}

// Close implements Store. The file backend holds no resources.
func (s *FileStore) Close() error {
	return nil
}

// readRecord returns nil, nil when no record exists for action.
func (s *FileStore) readRecord(action string) (*Record, error) {
	rec, err := s.readRecordFile(s.recordPath(action))
	if err != nil && os.IsNotExist(err) {
		return nil, nil
	}
	return rec, err
}

func (s *FileStore) readRecordFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrStoreCorrupt, filepath.Base(path), err)
	}
	if rec.Action == "" || rec.StartedAt.IsZero() {
		return nil, fmt.Errorf("%w: %s: missing action or started_at", errors.ErrStoreCorrupt, filepath.Base(path))
	}
	return &rec, nil
}
