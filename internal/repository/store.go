// Package repository persists finished-session feedback records.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"skillup/pkg/schema"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("feedback record not found")

// FeedbackStore stores feedback records keyed by user.
type FeedbackStore interface {
	// Save assigns an id and creation time when missing and stores rec.
	Save(ctx context.Context, rec *schema.FeedbackRecord) error

	// ListByUser returns the user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]schema.FeedbackRecord, error)

	Get(ctx context.Context, userID, id string) (*schema.FeedbackRecord, error)

	// Delete removes the user's record. Records owned by someone else are
	// reported as ErrNotFound.
	Delete(ctx context.Context, userID, id string) error

	Close() error
}

// prepare validates rec and fills in its id and timestamp.
func prepare(rec *schema.FeedbackRecord) error {
	if rec.ID == "" {
		id, err := schema.NewFeedbackID()
		if err != nil {
			return fmt.Errorf("generate feedback id: %w", err)
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := schema.ValidateFeedbackRecord(rec); err != nil {
		return fmt.Errorf("invalid feedback record: %w", err)
	}
	return nil
}

// newestFirst sorts records by creation time, newest first.
func newestFirst(recs []schema.FeedbackRecord) []schema.FeedbackRecord {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}
