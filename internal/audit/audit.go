// Package audit records every dispatch decision to an append-only stream.
//
// The default backend logs through zerolog; when AUDIT_LOG names a file, a
// JSONL logger appends one event per line there as well. Events carry ULID
// identifiers so interleaved writers still produce sortable streams.
package audit

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
)

// Event is a single audit entry for one dispatch decision.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	RequestedBy string    `json:"requested_by"`
	Outcome     string    `json:"outcome"` // "executed", "skipped_disabled", ...
	Success     bool      `json:"success"`
	DryRun      bool      `json:"dry_run,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Logger is the audit backend contract.
type Logger interface {
	// Log records an audit event. Implementations must not fail the dispatch
	// path; errors are reported for logging only.
	Log(event Event) error

	// Close releases any resources held by the logger.
	Close() error
}

var (
	globalLogger Logger
	loggerMu     sync.RWMutex
)

// SetLogger sets the global audit logger. Called during initialization;
// subsequent calls replace the previous logger.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	globalLogger = l
}

// GetLogger returns the current global audit logger, defaulting to console.
func GetLogger() Logger {
	loggerMu.RLock()
	l := globalLogger
	loggerMu.RUnlock()

	if l != nil {
		return l
	}
	return ConsoleLogger{}
}

// Record fills in ID and timestamp and hands the event to the global logger.
func Record(event Event) {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := GetLogger().Log(event); err != nil {
		log.Warn().Err(err).Str("action", event.Action).Msg("Failed to write audit event")
	}
}

// ConsoleLogger writes audit events through zerolog only.
type ConsoleLogger struct{}

// Log implements Logger.
func (ConsoleLogger) Log(event Event) error {
	log.Info().
		Str("auditID", event.ID).
		Str("action", event.Action).
		Str("requestedBy", event.RequestedBy).
		Str("outcome", event.Outcome).
		Bool("success", event.Success).
		Bool("dryRun", event.DryRun).
		Str("detail", event.Detail).
		Msg("Audit event")
	return nil
}

// Close implements Logger.
func (ConsoleLogger) Close() error {
	return nil
}
