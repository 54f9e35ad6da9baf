package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(event Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureLogger) Close() error { return nil }

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	capture := &captureLogger{}
	SetLogger(capture)
	t.Cleanup(func() { SetLogger(nil) })

	Record(Event{Action: "disk-cleanup", RequestedBy: "disk-check", Outcome: "executed", Success: true})
	Record(Event{Action: "disk-cleanup", RequestedBy: "disk-check", Outcome: "skipped_grace_period"})

	require.Len(t, capture.events, 2)
	first, second := capture.events[0], capture.events[1]

	assert.Len(t, first.ID, 26)
	assert.False(t, first.Timestamp.IsZero())
	assert.NotEqual(t, first.ID, second.ID)

	// ULIDs from the same process sort in creation order.
	assert.Less(t, first.ID, second.ID)
}

func TestRecordKeepsProvidedID(t *testing.T) {
	capture := &captureLogger{}
	SetLogger(capture)
	t.Cleanup(func() { SetLogger(nil) })

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	Record(Event{ID: "fixed-id", Timestamp: ts, Action: "thermal-shutdown"})

	require.Len(t, capture.events, 1)
	assert.Equal(t, "fixed-id", capture.events[0].ID)
	assert.True(t, capture.events[0].Timestamp.Equal(ts))
}

func TestFileLoggerAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "events.jsonl")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Log(Event{ID: "01", Action: "disk-cleanup", Outcome: "executed", Success: true}))
	require.NoError(t, logger.Log(Event{ID: "02", Action: "disk-cleanup", Outcome: "skipped_disabled"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "disk-cleanup", events[0].Action)
	assert.True(t, events[0].Success)
	assert.Equal(t, "skipped_disabled", events[1].Outcome)
}

func TestNewFileLoggerRequiresPath(t *testing.T) {
	_, err := NewFileLogger("")
	assert.Error(t, err)
}

func TestGetLoggerDefaultsToConsole(t *testing.T) {
	SetLogger(nil)
	assert.IsType(t, ConsoleLogger{}, GetLogger())
}
