package storage

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*entities.Feedback
	now     func() time.Time
}

var _ repositories.FeedbackRepository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store, optionally seeded with records.
func NewMemoryStore(seed ...*entities.Feedback) *MemoryStore {
	return &MemoryStore{
		records: append([]*entities.Feedback(nil), seed...),
		now:     time.Now,
	}
}

// Append stamps and stores the draft.
func (s *MemoryStore) Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	record, err := entities.NewFeedback(draft, s.now())
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()

	return record, nil
}

// ListAll returns a copy of the stored slice.
func (s *MemoryStore) ListAll(ctx context.Context) ([]*entities.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewReadError("failed to list feedback", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*entities.Feedback, len(s.records))
	copy(records, s.records)
	return records, nil
}
