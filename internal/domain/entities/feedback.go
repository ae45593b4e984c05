package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Feedback is one persisted feedback submission. Records are never mutated after Append.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	Page      string    `json:"page" db:"page"`
	Device    string    `json:"device" db:"device"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// FeedbackDraft is a record before the store has assigned its id and timestamp.
type FeedbackDraft struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,max=320"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=4000"`
	Page    string `json:"page" validate:"max=2048"`
	Device  string `json:"device" validate:"max=512"`
}

// NewFeedback stamps a draft with a time-ordered id and the given instant.
func NewFeedback(draft FeedbackDraft, now time.Time) (*Feedback, error) {
	// v7 ids sort by creation time, which keeps insertion order and id order aligned
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate feedback id: %w", err)
	}

	return &Feedback{
		ID:        id.String(),
		Name:      draft.Name,
		Email:     draft.Email,
		Rating:    draft.Rating,
		Comment:   draft.Comment,
		Page:      draft.Page,
		Device:    draft.Device,
		Timestamp: now.UTC(),
	}, nil
}

// IsLowRating reports whether the record needs urgent attention.
func (f *Feedback) IsLowRating() bool {
	return f.Rating <= 2
}
