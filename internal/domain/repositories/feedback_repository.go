package repositories

import (
	"context"

	"github.com/zatekoja/feediq/internal/domain/entities"
)

// FeedbackRepository is the storage collaborator for feedback records.
type FeedbackRepository interface {
	// Append assigns id and timestamp to the draft and persists it.
	Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error)

	// ListAll returns every persisted record in insertion order.
	ListAll(ctx context.Context) ([]*entities.Feedback, error)
}
