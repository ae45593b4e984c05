package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/infrastructure/notifications"
)

type webhookPayload struct {
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	Attachments []struct {
		Text   string `json:"text"`
		Footer string `json:"footer"`
		Fields []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		} `json:"fields"`
	} `json:"attachments"`
}

func lowRated() *entities.Feedback {
	return &entities.Feedback{
		ID:        "fb-42",
		Name:      "Bob Smith",
		Rating:    1,
		Comment:   "The checkout page kept crashing",
		Page:      "https://shop.example.org/checkout",
		Timestamp: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewSlackNotifier_RequiresWebhook(t *testing.T) {
	_, err := notifications.NewSlackNotifier("", "#alerts")
	assert.Error(t, err)
}

func TestSlackNotifier_NotifyLowRating(t *testing.T) {
	var payload webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	notifier, err := notifications.NewSlackNotifier(server.URL, "#alerts")
	require.NoError(t, err)

	require.NoError(t, notifier.NotifyLowRating(context.Background(), lowRated()))

	assert.Equal(t, "#alerts", payload.Channel)
	assert.Contains(t, payload.Text, "1-star")
	require.Len(t, payload.Attachments, 1)
	attachment := payload.Attachments[0]
	assert.Equal(t, "The checkout page kept crashing", attachment.Text)
	assert.Equal(t, "fb-42", attachment.Footer)

	fields := make(map[string]string)
	for _, f := range attachment.Fields {
		fields[f.Title] = f.Value
	}
	assert.Equal(t, "Bob Smith", fields["Name"])
	assert.Equal(t, "-", fields["Email"])
	assert.Equal(t, "https://shop.example.org/checkout", fields["Page"])
}

func TestSlackNotifier_WebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer server.Close()

	notifier, err := notifications.NewSlackNotifier(server.URL, "")
	require.NoError(t, err)

	assert.Error(t, notifier.NotifyLowRating(context.Background(), lowRated()))
}

func TestLogNotifier_NeverFails(t *testing.T) {
	assert.NoError(t, notifications.LogNotifier{}.NotifyLowRating(context.Background(), lowRated()))
}
