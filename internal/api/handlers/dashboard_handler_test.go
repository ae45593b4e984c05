package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/adapters/storage"
	"github.com/zatekoja/feediq/internal/analytics"
	"github.com/zatekoja/feediq/internal/api/handlers"
	"github.com/zatekoja/feediq/internal/application/services"
	"github.com/zatekoja/feediq/internal/domain/entities"
)

func TestDashboardHandler_GetDashboard(t *testing.T) {
	store := storage.NewMemoryStore()
	service := services.NewFeedbackService(store)
	service.SetLocation(time.UTC)

	for _, rating := range []int{1, 1, 3, 5, 5, 5} {
		_, err := store.Append(t.Context(), entities.FeedbackDraft{
			Name:    "Alice",
			Rating:  rating,
			Comment: "Some words here",
			Page:    "https://example.org/pricing?plan=pro",
			Device:  "Mozilla/5.0 Firefox/121.0",
		})
		require.NoError(t, err)
	}

	handler := handlers.NewDashboardHandler(service)
	w := httptest.NewRecorder()
	handler.GetDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var bundle analytics.Bundle
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bundle))
	assert.Equal(t, 6, bundle.Total)
	assert.Equal(t, [6]int{0, 2, 0, 1, 0, 3}, bundle.Distribution())
	require.Len(t, bundle.FeedbackByPage, 1)
	assert.Equal(t, "/pricing", bundle.FeedbackByPage[0].Name)
}

func TestDashboardHandler_Empty(t *testing.T) {
	handler := handlers.NewDashboardHandler(services.NewFeedbackService(storage.NewMemoryStore()))
	w := httptest.NewRecorder()
	handler.GetDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var bundle analytics.Bundle
	require.NoError(t, json.NewDecoder(w.Body).Decode(&bundle))
	assert.Equal(t, "0.00", bundle.AverageRating)
	assert.NotNil(t, bundle.CumulativeGrowth)
	assert.Empty(t, bundle.CumulativeGrowth)
}
