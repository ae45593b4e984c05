package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

const alertColor = "#dc2626"

// SlackNotifier posts low-rating alerts to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

var _ providers.AlertNotifier = (*SlackNotifier)(nil)

// NewSlackNotifier creates a notifier for the given webhook. Channel may be
// empty to use the webhook's default channel.
func NewSlackNotifier(webhookURL, channel string) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("SLACK_WEBHOOK_URL must be set")
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NotifyLowRating posts one attachment describing the feedback
func (n *SlackNotifier) NotifyLowRating(ctx context.Context, feedback *entities.Feedback) error {
	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    fmt.Sprintf(":rotating_light: %d-star feedback needs attention", feedback.Rating),
		Attachments: []slack.Attachment{{
			Color:    alertColor,
			Fallback: fmt.Sprintf("%s rated %d: %s", feedback.Name, feedback.Rating, feedback.Comment),
			Text:     feedback.Comment,
			Fields: []slack.AttachmentField{
				{Title: "Name", Value: feedback.Name, Short: true},
				{Title: "Email", Value: orDash(feedback.Email), Short: true},
				{Title: "Rating", Value: strings.Repeat("★", feedback.Rating) + " (" + strconv.Itoa(feedback.Rating) + ")", Short: true},
				{Title: "Page", Value: orDash(feedback.Page), Short: true},
			},
			Footer: feedback.ID,
			Ts:     json.Number(strconv.FormatInt(feedback.Timestamp.Unix(), 10)),
		}},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post slack alert: %w", err)
	}
	return nil
}

// LogNotifier records low-rating alerts in the log when Slack is not configured
type LogNotifier struct{}

var _ providers.AlertNotifier = LogNotifier{}

// NotifyLowRating logs the feedback at warn level
func (LogNotifier) NotifyLowRating(ctx context.Context, feedback *entities.Feedback) error {
	log.Ctx(ctx).Warn().
		Str("feedback_id", feedback.ID).
		Int("rating", feedback.Rating).
		Str("page", feedback.Page).
		Msg("low rating alert: this feedback requires immediate attention")
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
