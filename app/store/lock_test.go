package store

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json.lock")
	l := NewLocker(path)

	h, err := l.Acquire(time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data), "lock file records the owner pid")

	h.Release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLocker_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json.lock")

	h, err := NewLocker(path).Acquire(time.Second)
	require.NoError(t, err)
	defer h.Release()

	st := time.Now()
	_, err = NewLocker(path).Acquire(100 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindLockContention))
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
	assert.Less(t, time.Since(st), 2*time.Second, "fails after the timeout, never blocks")
}

func TestLocker_StaleReclaim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json.lock")

	// lock left behind by a process that no longer exists
	require.NoError(t, os.WriteFile(path, []byte("99999999"), 0o600))

	h, err := NewLocker(path).Acquire(time.Second)
	require.NoError(t, err)
	defer h.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data), "stale lock reclaimed by the new owner")
}

func TestLocker_GarbledLockReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o600))

	h, err := NewLocker(path).Acquire(time.Second)
	require.NoError(t, err)
	h.Release()
}

func TestLockHandle_ReleaseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json.lock")

	h, err := NewLocker(path).Acquire(time.Second)
	require.NoError(t, err)

	h.Release()
	h.Release() // second release is a no-op

	var nilHandle *LockHandle
	nilHandle.Release() // nil-safe
}
