package entities

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackEventType represents the type of feedback event
type FeedbackEventType string

const (
	FeedbackEventTypeCreated FeedbackEventType = "feedback.created"
)

// FeedbackEvent announces that a record became visible in the store
type FeedbackEvent struct {
	ID         string            `json:"id"`
	Type       FeedbackEventType `json:"type"`
	Feedback   *Feedback         `json:"feedback"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewFeedbackCreatedEvent creates a created event for the given record
func NewFeedbackCreatedEvent(feedback *Feedback) *FeedbackEvent {
	return &FeedbackEvent{
		ID:         uuid.NewString(),
		Type:       FeedbackEventTypeCreated,
		Feedback:   feedback,
		OccurredAt: time.Now().UTC(),
	}
}
