package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// StaleLockAge is how old a lock may get before another process takes it.
const StaleLockAge = 30 * time.Minute

// ErrLocked is returned when another live process holds the store lock.
var ErrLocked = errors.New("feedback store locked")

// LockFile is the metadata written into the lock file.
type LockFile struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Owner     string    `json:"owner"` // "serve" or "practice"
	Timestamp time.Time `json:"timestamp"`
}

// FileLock serializes writers across processes with flock.
type FileLock struct {
	path  string
	owner string
	file  *os.File
}

// NewFileLock creates a lock at path held on behalf of owner.
func NewFileLock(path, owner string) *FileLock {
	return &FileLock{path: path, owner: owner}
}

// Acquire takes the lock without waiting. A lock left by a dead process or
// older than StaleLockAge is taken over.
func (l *FileLock) Acquire() error {
	return l.acquire(true)
}

// AcquireWithin retries Acquire until it succeeds or timeout elapses.
func (l *FileLock) AcquireWithin(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := l.Acquire()
		if err == nil || !errors.Is(err, ErrLocked) || time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *FileLock) acquire(mayTakeOver bool) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("Failed to close lock file", "path", l.path, "error", closeErr)
		}

		holder, readErr := l.read()
		if readErr != nil {
			return fmt.Errorf("%w: %v", ErrLocked, err)
		}
		if mayTakeOver && holder.stale() {
			slog.Warn("Taking over stale lock", "path", l.path, "pid", holder.PID, "owner", holder.Owner)
			_ = os.Remove(l.path)
			return l.acquire(false)
		}
		age := time.Since(holder.Timestamp).Round(time.Second)
		return fmt.Errorf("%w by %s (PID %d, %v ago)", ErrLocked, holder.Owner, holder.PID, age)
	}

	hostname, _ := os.Hostname()
	data, _ := json.MarshalIndent(LockFile{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Owner:     l.owner,
		Timestamp: time.Now(),
	}, "", "  ")
	if err := file.Truncate(0); err != nil {
		file.Close()
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		file.Close()
		return fmt.Errorf("write lock metadata: %w", err)
	}

	l.file = file
	return nil
}

// Release drops the lock and removes the lock file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Failed to release flock", "path", l.path, "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Warn("Failed to close lock file", "path", l.path, "error", err)
	}
	l.file = nil
	return os.Remove(l.path)
}

func (l *FileLock) read() (*LockFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var lock LockFile
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}
	return &lock, nil
}

// stale reports whether the holder process is gone or the lock expired.
func (f *LockFile) stale() bool {
	process, err := os.FindProcess(f.PID)
	if err != nil {
		return true
	}
	// FindProcess always succeeds on Unix; signal 0 probes liveness.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true
	}
	return time.Since(f.Timestamp) > StaleLockAge
}
