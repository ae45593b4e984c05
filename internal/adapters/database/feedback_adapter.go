package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	"github.com/zatekoja/feediq/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

const feedbackTable = "feedback"

// FeedbackSchema creates the feedback table when it does not exist yet.
const FeedbackSchema = `CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment    TEXT NOT NULL,
	page       TEXT NOT NULL DEFAULT '',
	device     TEXT NOT NULL DEFAULT '',
	timestamp  TIMESTAMPTZ NOT NULL
)`

var feedbackColumns = []interface{}{"id", "name", "email", "rating", "comment", "page", "device", "timestamp"}

// FeedbackAdapter implements feedback persistence in Postgres.
type FeedbackAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

var _ repositories.FeedbackRepository = (*FeedbackAdapter)(nil)

// NewFeedbackAdapter creates a new feedback adapter.
func NewFeedbackAdapter(client *postgres.Client) *FeedbackAdapter {
	return &FeedbackAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    time.Now,
	}
}

// EnsureSchema creates the feedback table.
func (a *FeedbackAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, FeedbackSchema); err != nil {
		return apperrors.NewInternalError("failed to create feedback table", err)
	}
	return nil
}

// Append inserts a feedback record.
func (a *FeedbackAdapter) Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	feedback, err := entities.NewFeedback(draft, a.now())
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	record := goqu.Record{
		"id":        feedback.ID,
		"name":      feedback.Name,
		"email":     feedback.Email,
		"rating":    feedback.Rating,
		"comment":   feedback.Comment,
		"page":      feedback.Page,
		"device":    feedback.Device,
		"timestamp": feedback.Timestamp,
	}

	query, args, err := a.db.Insert(feedbackTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return nil, apperrors.NewStoreError("Failed to save feedback", err)
	}

	return feedback, nil
}

// ListAll returns every record, oldest first.
func (a *FeedbackAdapter) ListAll(ctx context.Context) ([]*entities.Feedback, error) {
	query, args, err := a.db.From(feedbackTable).
		Select(feedbackColumns...).
		Order(goqu.C("timestamp").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewReadError("failed to build feedback query", err)
	}

	records := []*entities.Feedback{}
	if err := a.client.X().SelectContext(ctx, &records, query, args...); err != nil {
		return nil, apperrors.NewReadError("failed to list feedback", err)
	}
	return records, nil
}
