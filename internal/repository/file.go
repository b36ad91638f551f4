package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"skillup/pkg/schema"
)

const (
	feedbackDir     = "feedback"
	lockWaitTimeout = 5 * time.Second
)

var recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStore keeps one YAML file per record under baseDir/feedback. Writes go
// through a CopyOnWriteTx under a cross-process FileLock.
type FileStore struct {
	baseDir string
	owner   string
	mu      sync.RWMutex
}

// NewFileStore creates a store rooted at baseDir. owner is recorded in the
// lock file while writing.
func NewFileStore(baseDir, owner string) *FileStore {
	return &FileStore{baseDir: baseDir, owner: owner}
}

func (s *FileStore) lockPath() string {
	return s.baseDir + ".lock"
}

func recordPath(id string) string {
	return filepath.Join(feedbackDir, id+".yaml")
}

func (s *FileStore) Save(ctx context.Context, rec *schema.FeedbackRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	if !recordIDPattern.MatchString(rec.ID) {
		return fmt.Errorf("invalid feedback record: id %q", rec.ID)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal feedback record: %w", err)
	}

	return s.write(func(tx *CopyOnWriteTx) error {
		return tx.WriteFile(recordPath(rec.ID), data)
	})
}

func (s *FileStore) ListByUser(ctx context.Context, userID string) ([]schema.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.baseDir, feedbackDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []schema.FeedbackRecord{}, nil
		}
		return nil, fmt.Errorf("read feedback directory: %w", err)
	}

	recs := []schema.FeedbackRecord{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable feedback record", "file", entry.Name(), "error", err)
			continue
		}
		if rec.UserID == userID {
			recs = append(recs, *rec)
		}
	}
	return newestFirst(recs), nil
}

func (s *FileStore) Get(ctx context.Context, userID, id string) (*schema.FeedbackRecord, error) {
	if !recordIDPattern.MatchString(id) {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owned(filepath.Join(s.baseDir, recordPath(id)), userID)
}

func (s *FileStore) Delete(ctx context.Context, userID, id string) error {
	if !recordIDPattern.MatchString(id) {
		return ErrNotFound
	}
	return s.write(func(tx *CopyOnWriteTx) error {
		if _, err := s.owned(filepath.Join(tx.TempDir(), recordPath(id)), userID); err != nil {
			return err
		}
		return tx.Remove(recordPath(id))
	})
}

func (s *FileStore) Close() error {
	return nil
}

// write runs fn in a transaction while holding both the process mutex and
// the file lock.
func (s *FileStore) write(fn func(tx *CopyOnWriteTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.baseDir), 0755); err != nil {
		return fmt.Errorf("create store parent: %w", err)
	}
	lock := NewFileLock(s.lockPath(), s.owner)
	if err := lock.AcquireWithin(lockWaitTimeout); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release store lock", "error", err)
		}
	}()

	tx := NewCopyOnWriteTx(s.baseDir)
	if err := tx.Begin(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("Rollback failed", "error", rbErr)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *FileStore) owned(path, userID string) (*schema.FeedbackRecord, error) {
	rec, err := readRecord(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func readRecord(path string) (*schema.FeedbackRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feedback record: %w", err)
	}
	var rec schema.FeedbackRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse feedback record: %w", err)
	}
	return &rec, nil
}
