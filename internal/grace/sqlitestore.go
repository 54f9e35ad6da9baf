package grace

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/hostmend/hostmend/internal/errors"
	"github.com/hostmend/hostmend/internal/metrics"
	"github.com/hostmend/hostmend/internal/utils"
)

// SQLiteStore is the stricter Store backend: Start is a transactional upsert,
// so two processes racing past Check cannot both believe they wrote first.
// Selected with GRACE_BACKEND=sqlite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	now func() time.Time
}

// NewSQLiteStore opens (or creates) grace.db under dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("grace store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create grace store directory: %w", err)
	}
	dbPath := filepath.Join(dir, "grace.db")

	// Pragmas in the DSN so every pool connection is configured
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open grace database: %w", err)
	}

	// SQLite works best with a single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, dbPath: dbPath, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize grace schema: %w", err)
	}

	log.Debug().Str("dbPath", dbPath).Msg("SQLite grace store ready")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS grace_records (
			action           TEXT PRIMARY KEY,
			started_at_ms    INTEGER NOT NULL,
			requested_by     TEXT NOT NULL,
			cooldown_seconds INTEGER NOT NULL
		)
	`)
	return err
}

// Check implements Store.
func (s *SQLiteStore) Check(action string, monitorInterval time.Duration) (Status, error) {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return Status{}, err
	}

	row := s.db.QueryRow(
		`SELECT started_at_ms, requested_by, cooldown_seconds FROM grace_records WHERE action = ?`,
		action,
	)
	var startedMs int64
	var requestedBy string
	var cooldownSec int
	if err := row.Scan(&startedMs, &requestedBy, &cooldownSec); err != nil {
		if err == sql.ErrNoRows {
			return Status{}, nil
		}
		// Same fail-open posture as the file backend.
		log.Warn().Str("action", action).Err(err).
			Msg("Grace record unreadable, treating as expired")
		return Status{}, nil
	}

	rec := &Record{
		Action:          action,
		StartedAt:       time.UnixMilli(startedMs).UTC(),
		RequestedBy:     requestedBy,
		CooldownSeconds: cooldownSec,
	}
	left := remaining(rec, monitorInterval, s.now())
	if left > 0 {
		return Status{InGracePeriod: true, Remaining: left, Record: rec}, nil
	}
	return Status{Record: rec}, nil
}

// Start implements Store with an atomic upsert.
func (s *SQLiteStore) Start(action string, cooldown time.Duration, requestedBy string) error {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		INSERT INTO grace_records (action, started_at_ms, requested_by, cooldown_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(action) DO UPDATE SET
			started_at_ms = excluded.started_at_ms,
			requested_by = excluded.requested_by,
			cooldown_seconds = excluded.cooldown_seconds
	`, action, s.now().UTC().UnixMilli(), requestedBy, int(cooldown/time.Second))
	if err != nil {
		return errors.WrapStoreError("grace_start", action, err)
	}
	return nil
}

// Cleanup implements Store.
func (s *SQLiteStore) Cleanup(retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.now().Add(-retention).UnixMilli()

	res, err := s.db.Exec(`DELETE FROM grace_records WHERE started_at_ms < ?`, cutoff)
	if err != nil {
		return errors.WrapStoreError("grace_cleanup", "", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		metrics.GraceRecordsCleaned.Add(float64(n))
		log.Debug().Int64("removed", n).Msg("Cleaned up stale grace records")
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT action, started_at_ms, requested_by, cooldown_seconds FROM grace_records ORDER BY action`,
	)
	if err != nil {
		return nil, errors.WrapStoreError("grace_list", "", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedMs int64
		if err := rows.Scan(&rec.Action, &startedMs, &rec.RequestedBy, &rec.CooldownSeconds); err != nil {
			log.Warn().Err(err).Msg("Skipping unreadable grace record")
			continue
		}
		rec.StartedAt = time.UnixMilli(startedMs).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Remove implements Store.
func (s *SQLiteStore) Remove(action string) error {
	if err := utils.ValidateIdentifier("action", action); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM grace_records WHERE action = ?`, action); err != nil {
		return errors.WrapStoreError("grace_remove", action, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
