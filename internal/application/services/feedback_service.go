package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/feediq/internal/analytics"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
	"github.com/zatekoja/feediq/internal/domain/repositories"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
	"github.com/zatekoja/feediq/internal/intake"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

const (
	// DefaultDashboardTTL is how long a computed bundle is served from cache
	DefaultDashboardTTL = 30

	saveFailedMessage = "Failed to save feedback"
	readFailedMessage = "Failed to load feedback"
)

// Intake outcomes reported to the business counters
const (
	OutcomeSaved     = "saved"
	OutcomeUrgent    = "urgent"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// FeedbackService orchestrates the storage collaborator, change notification,
// alerting and the dashboard metrics.
type FeedbackService struct {
	repo     repositories.FeedbackRepository
	eventBus providers.EventBus
	cache    providers.CacheProvider
	notifier providers.AlertNotifier

	metrics  *observability.Metrics
	business *observability.BusinessMetrics

	location *time.Location
	cacheTTL int

	// appends counts successful appends so a refresh can tell its read went stale
	appends atomic.Uint64
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(repo repositories.FeedbackRepository) *FeedbackService {
	return &FeedbackService{
		repo:     repo,
		location: time.Local,
		cacheTTL: DefaultDashboardTTL,
	}
}

// SetEventBus enables feedback.created publication and Watch
func (s *FeedbackService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// SetCache enables dashboard caching; ttlSeconds <= 0 keeps the default
func (s *FeedbackService) SetCache(cache providers.CacheProvider, ttlSeconds int) {
	s.cache = cache
	if ttlSeconds > 0 {
		s.cacheTTL = ttlSeconds
	}
}

// SetAlertNotifier sets the destination for low rating alerts
func (s *FeedbackService) SetAlertNotifier(notifier providers.AlertNotifier) {
	s.notifier = notifier
}

// SetMetrics sets the instruments; either may be nil
func (s *FeedbackService) SetMetrics(metrics *observability.Metrics, business *observability.BusinessMetrics) {
	s.metrics = metrics
	s.business = business
}

// SetLocation sets the zone used for day, hour and month buckets
func (s *FeedbackService) SetLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// Append validates and persists one draft. Publication and alert failures are
// logged and never returned.
func (s *FeedbackService) Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error) {
	ctx, span := observability.StartSpan(ctx, "FeedbackService.Append")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.Int("feedback.rating", draft.Rating))

	draft = normalizeDraft(draft)
	if err := intake.ValidateDraft(draft); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			s.business.ObserveRejection(appErr.Code)
		}
		return nil, err
	}

	start := time.Now()
	feedback, err := s.repo.Append(ctx, draft)
	observability.RecordStoreMetric(ctx, s.metrics, "append", time.Since(start))
	s.business.ObserveSubmission(draft.Rating, err)
	if err != nil {
		observability.RecordError(span, err)
		if !apperrors.IsType(err, apperrors.ErrorTypeStore) {
			err = apperrors.NewStoreError(saveFailedMessage, err)
		}
		return nil, err
	}

	logger := observability.LoggerFromContext(ctx)
	logger.Info().
		Str("feedback_id", feedback.ID).
		Int("rating", feedback.Rating).
		Msg("feedback stored")

	s.appends.Add(1)
	s.invalidateDashboard(ctx)

	if s.eventBus != nil {
		event := entities.NewFeedbackCreatedEvent(feedback)
		if err := s.eventBus.Publish(ctx, providers.EventChannelFeedbackCreated, event); err != nil {
			logger.Warn().Err(err).Str("feedback_id", feedback.ID).Msg("failed to publish feedback event")
		}
	}

	if feedback.IsLowRating() && s.notifier != nil {
		err := s.notifier.NotifyLowRating(ctx, feedback)
		s.business.ObserveAlert(err)
		if err != nil {
			logger.Error().Err(err).Str("feedback_id", feedback.ID).Msg("failed to send low rating alert")
		}
	}

	return feedback, nil
}

// ListAll returns every record in insertion order. Read failures are logged
// and yield an empty list.
func (s *FeedbackService) ListAll(ctx context.Context) ([]*entities.Feedback, error) {
	ctx, span := observability.StartSpan(ctx, "FeedbackService.ListAll")
	defer span.End()

	start := time.Now()
	records, err := s.repo.ListAll(ctx)
	observability.RecordStoreMetric(ctx, s.metrics, "list", time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).Msg(readFailedMessage)
		return []*entities.Feedback{}, nil
	}
	if records == nil {
		records = []*entities.Feedback{}
	}
	observability.SetSpanAttributes(span, attribute.Int("feedback.count", len(records)))
	return records, nil
}

// Dashboard returns the metrics bundle, served from cache when possible
func (s *FeedbackService) Dashboard(ctx context.Context) (analytics.Bundle, error) {
	ctx, span := observability.StartSpan(ctx, "FeedbackService.Dashboard")
	defer span.End()

	if bundle, ok := s.cachedDashboard(ctx); ok {
		return bundle, nil
	}
	return s.RefreshDashboard(ctx)
}

// RefreshDashboard recomputes the bundle and replaces the cached copy. A
// bundle computed while an append landed is returned but not cached.
func (s *FeedbackService) RefreshDashboard(ctx context.Context) (analytics.Bundle, error) {
	generation := s.appends.Load()
	records, err := s.ListAll(ctx)
	if err != nil {
		return analytics.Bundle{}, err
	}
	bundle := analytics.Compute(records, s.location)

	if s.cache == nil || s.appends.Load() != generation {
		return bundle, nil
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return bundle, nil
	}
	if err := s.cache.Set(ctx, providers.CacheKeyDashboard, data, s.cacheTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to cache dashboard")
		return bundle, nil
	}
	// an append between the check and Set may have invalidated before we wrote
	if s.appends.Load() != generation {
		s.invalidateDashboard(ctx)
	}
	return bundle, nil
}

// DashboardTTL returns how long a cached bundle lives, in seconds
func (s *FeedbackService) DashboardTTL() int {
	return s.cacheTTL
}

// ExportCSV writes every record as CSV
func (s *FeedbackService) ExportCSV(ctx context.Context, w io.Writer) error {
	ctx, span := observability.StartSpan(ctx, "FeedbackService.ExportCSV")
	defer span.End()

	records, err := s.ListAll(ctx)
	if err != nil {
		return err
	}
	if err := analytics.WriteCSV(w, records, s.location); err != nil {
		observability.RecordError(span, err)
		return fmt.Errorf("failed to write csv export: %w", err)
	}
	return nil
}

// Watch subscribes to records becoming visible in the store. The channel
// closes when ctx ends.
func (s *FeedbackService) Watch(ctx context.Context) (<-chan *entities.FeedbackEvent, error) {
	if s.eventBus == nil {
		return nil, apperrors.NewInternalError("change notifications are not configured", nil)
	}
	return s.eventBus.Subscribe(ctx, providers.EventChannelFeedbackCreated)
}

// ObserveIntakeClosed counts how a conversation ended. It is meant to be
// registered as an intake OnClose hook.
func (s *FeedbackService) ObserveIntakeClosed(session *intake.Session) {
	s.business.ObserveIntakeOutcome(IntakeOutcome(session.Snapshot()))
}

// IntakeOutcome classifies a closed conversation
func IntakeOutcome(snapshot intake.Snapshot) string {
	switch snapshot.Notice.Signal {
	case intake.SignalSaved:
		return OutcomeSaved
	case intake.SignalUrgent:
		return OutcomeUrgent
	case intake.SignalFailed:
		return OutcomeFailed
	default:
		return OutcomeAbandoned
	}
}

func (s *FeedbackService) cachedDashboard(ctx context.Context) (analytics.Bundle, bool) {
	if s.cache == nil {
		return analytics.Bundle{}, false
	}

	data, err := s.cache.Get(ctx, providers.CacheKeyDashboard)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Msg("dashboard cache read failed")
		}
		observability.RecordCacheLookup(ctx, s.metrics, providers.CacheKeyDashboard, false)
		return analytics.Bundle{}, false
	}

	var bundle analytics.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("discarding unreadable dashboard cache entry")
		observability.RecordCacheLookup(ctx, s.metrics, providers.CacheKeyDashboard, false)
		return analytics.Bundle{}, false
	}
	observability.RecordCacheLookup(ctx, s.metrics, providers.CacheKeyDashboard, true)
	return bundle, true
}

func (s *FeedbackService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, providers.CacheKeyDashboard); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

// normalizeDraft trims what the conversation trims. Email is validated as
// typed, so " a@b.com" is rejected on every path.
func normalizeDraft(draft entities.FeedbackDraft) entities.FeedbackDraft {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Comment = strings.TrimSpace(draft.Comment)
	return draft
}
