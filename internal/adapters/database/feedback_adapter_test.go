package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/database"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

func setupMockDB(t *testing.T) (*database.FeedbackAdapter, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return database.NewFeedbackAdapter(postgres.NewClientFromDB(mockDB)), mock
}

func TestFeedbackAdapter_Append(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO "feedback"`).
		WithArgs("Great service!", "Mozilla/5.0", "", sqlmock.AnyArg(), "Alice", "/checkout", 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	record, err := adapter.Append(context.Background(), entities.FeedbackDraft{
		Name:    "Alice",
		Rating:  5,
		Comment: "Great service!",
		Page:    "/checkout",
		Device:  "Mozilla/5.0",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
	assert.Equal(t, time.UTC, record.Timestamp.Location())
	assert.Equal(t, "Alice", record.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_AppendFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO "feedback"`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.Append(context.Background(), entities.FeedbackDraft{Name: "Alice", Rating: 4, Comment: "Lovely shop"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
	assert.Equal(t, "Failed to save feedback", apperrors.UserMessage(err, ""))
}

func TestFeedbackAdapter_ListAll(t *testing.T) {
	adapter, mock := setupMockDB(t)

	first := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "rating", "comment", "page", "device", "timestamp"}).
		AddRow("a", "Alice", "", 5, "Great service!", "/", "Mozilla/5.0", first).
		AddRow("b", "Maria", "maria@shop.io", 2, "Too slow", "/checkout", "curl/8.0", first.Add(time.Hour))

	mock.ExpectQuery(`SELECT (.+) FROM "feedback" ORDER BY "timestamp" ASC, "id" ASC`).WillReturnRows(rows)

	records, err := adapter.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "maria@shop.io", records[1].Email)
	assert.Equal(t, 2, records[1].Rating)
	assert.True(t, first.Add(time.Hour).Equal(records[1].Timestamp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_ListAllEmpty(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "feedback"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "rating", "comment", "page", "device", "timestamp"}))

	records, err := adapter.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFeedbackAdapter_ListAllFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "feedback"`).WillReturnError(errors.New("relation does not exist"))

	_, err := adapter.ListAll(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRead))
}

func TestFeedbackAdapter_EnsureSchema(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS feedback`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
