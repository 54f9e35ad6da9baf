package grace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/hostmend/hostmend/internal/errors"
)

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, *fakeClock) {
	t.Helper()
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	clock := &fakeClock{t: time.Unix(1000, 0).UTC()}
	store.now = clock.now
	return store, clock
}

func TestSQLiteCheckStartRoundTrip(t *testing.T) {
	store, clock := newTestSQLiteStore(t)

	status, err := store.Check("disk-cleanup", 120*time.Second)
	require.NoError(t, err)
	assert.False(t, status.InGracePeriod)

	require.NoError(t, store.Start("disk-cleanup", 300*time.Second, "disk"))

	clock.advance(419 * time.Second)
	status, err = store.Check("disk-cleanup", 120*time.Second)
	require.NoError(t, err)
	assert.True(t, status.InGracePeriod)
	assert.Equal(t, time.Second, status.Remaining)

	clock.advance(2 * time.Second)
	status, err = store.Check("disk-cleanup", 120*time.Second)
	require.NoError(t, err)
	assert.False(t, status.InGracePeriod)
}

func TestSQLiteStartUpsert(t *testing.T) {
	store, clock := newTestSQLiteStore(t)
	require.NoError(t, store.Start("disk-cleanup", 300*time.Second, "disk"))
	clock.advance(time.Minute)
	require.NoError(t, store.Start("disk-cleanup", 600*time.Second, "memory"))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "memory", records[0].RequestedBy)
	assert.Equal(t, 600, records[0].CooldownSeconds)
	assert.True(t, records[0].StartedAt.Equal(clock.now()))
}

func TestSQLiteCleanupRetention(t *testing.T) {
	store, clock := newTestSQLiteStore(t)
	require.NoError(t, store.Start("old-action", 300*time.Second, "disk"))
	clock.advance(25 * time.Hour)
	require.NoError(t, store.Start("fresh-action", 300*time.Second, "memory"))

	require.NoError(t, store.Cleanup(DefaultRetention))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh-action", records[0].Action)
}

func TestSQLiteInvalidIdentifierRejected(t *testing.T) {
	store, _ := newTestSQLiteStore(t)

	_, err := store.Check("../escape", 0)
	assert.ErrorIs(t, err, hosterrors.ErrInvalidIdentifier)

	err = store.Start("a;b", time.Minute, "test")
	assert.ErrorIs(t, err, hosterrors.ErrInvalidIdentifier)
}

func TestSQLiteRemove(t *testing.T) {
	store, _ := newTestSQLiteStore(t)
	require.NoError(t, store.Start("disk-cleanup", time.Minute, "disk"))
	require.NoError(t, store.Remove("disk-cleanup"))

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	fileStore, err := Open("file", dir)
	require.NoError(t, err)
	defer fileStore.Close()
	assert.IsType(t, &FileStore{}, fileStore)

	sqliteStore, err := Open("sqlite", dir)
	require.NoError(t, err)
	defer sqliteStore.Close()
	assert.IsType(t, &SQLiteStore{}, sqliteStore)

	_, err = Open("etcd", dir)
	assert.Error(t, err)
}
