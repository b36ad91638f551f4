package repository

import (
	"context"
	"sync"

	"skillup/pkg/schema"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]schema.FeedbackRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]schema.FeedbackRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, rec *schema.FeedbackRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]schema.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := []schema.FeedbackRecord{}
	for _, rec := range s.records {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	return newestFirst(recs), nil
}

func (s *MemoryStore) Get(ctx context.Context, userID, id string) (*schema.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
