package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".skillup.lock")
	lock := NewFileLock(lockPath, "test")

	require.NoError(t, lock.Acquire())

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	var meta LockFile
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, os.Getpid(), meta.PID)
	assert.Equal(t, "test", meta.Owner)

	require.NoError(t, lock.Release())
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, lock.Release(), "second release is a no-op")
}

func TestFileLock_SecondHolderIsRejected(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".skillup.lock")
	first := NewFileLock(lockPath, "serve")
	second := NewFileLock(lockPath, "practice")

	require.NoError(t, first.Acquire())
	defer first.Release()

	err := second.Acquire()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "serve")
}

func TestFileLock_AcquireWithinWaitsForRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".skillup.lock")
	first := NewFileLock(lockPath, "serve")
	require.NoError(t, first.Acquire())

	go func() {
		time.Sleep(50 * time.Millisecond)
		first.Release()
	}()

	second := NewFileLock(lockPath, "practice")
	require.NoError(t, second.AcquireWithin(2*time.Second))
	require.NoError(t, second.Release())
}

func TestFileLock_AcquireWithinTimesOut(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".skillup.lock")
	first := NewFileLock(lockPath, "serve")
	require.NoError(t, first.Acquire())
	defer first.Release()

	err := NewFileLock(lockPath, "practice").AcquireWithin(30 * time.Millisecond)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLockFile_Stale(t *testing.T) {
	live := &LockFile{PID: os.Getpid(), Timestamp: time.Now()}
	assert.False(t, live.stale())

	expired := &LockFile{PID: os.Getpid(), Timestamp: time.Now().Add(-StaleLockAge - time.Minute)}
	assert.True(t, expired.stale())
}
