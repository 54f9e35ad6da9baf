package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLogger appends one JSON event per line to a file, in addition to the
// console stream. Open/append per write keeps the logger safe for hostmend's
// short-lived check processes that share the same path.
type FileLogger struct {
	mu   sync.Mutex
	path string
}

// NewFileLogger creates the parent directory and returns the logger.
func NewFileLogger(path string) (*FileLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &FileLogger{path: path}, nil
}

// Log implements Logger. The console event is emitted first so operators see
// the decision even when the file write fails.
func (l *FileLogger) Log(event Event) error {
	if err := (ConsoleLogger{}).Log(event); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Close implements Logger.
func (l *FileLogger) Close() error {
	return nil
}
