package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/feediq/internal/analytics"
	"github.com/zatekoja/feediq/internal/domain/entities"
	"github.com/zatekoja/feediq/internal/domain/providers"
)

const (
	feedbackRateLimit   = 5
	feedbackRateWindow  = time.Hour
	feedbackDedupWindow = 24 * time.Hour

	maxFeedbackBody = 64 << 10
)

// FeedbackService defines the feedback operations used by the handler.
type FeedbackService interface {
	Append(ctx context.Context, draft entities.FeedbackDraft) (*entities.Feedback, error)
	ListAll(ctx context.Context) ([]*entities.Feedback, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

// FeedbackHandler handles one-shot submissions, listing and export.
type FeedbackHandler struct {
	service FeedbackService
	cache   providers.CacheProvider
	limiter rateLimiter
}

// NewFeedbackHandler creates a new feedback handler. Without a shared cache the
// rate limit and duplicate window are kept in process memory.
func NewFeedbackHandler(service FeedbackService, cacheProvider providers.CacheProvider) *FeedbackHandler {
	if cacheProvider == nil {
		cacheProvider = localCache()
	}
	return &FeedbackHandler{
		service: service,
		cache:   cacheProvider,
		limiter: rateLimiter{
			cache:  cacheProvider,
			prefix: providers.CacheKeyFeedbackRatePrefix,
			limit:  feedbackRateLimit,
			window: feedbackRateWindow,
		},
	}
}

type feedbackRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,max=320"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=4000"`
	Page    string `json:"page" validate:"max=2048"`
}

// SubmitFeedback handles POST /api/feedback
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody)).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	payload.Name = strings.TrimSpace(payload.Name)
	payload.Comment = strings.TrimSpace(payload.Comment)
	payload.Page = strings.TrimSpace(payload.Page)
	if payload.Page == "" {
		payload.Page = r.Referer()
	}

	if err := validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ip := clientIP(r)
	if !h.limiter.allow(r.Context(), ip) {
		h.limiter.reject(w)
		return
	}

	dupKey := providers.CacheKeyFeedbackDupPrefix + feedbackFingerprint(payload, ip)
	if h.isDuplicate(r.Context(), dupKey) {
		respondWithJSON(w, http.StatusAccepted, map[string]string{
			"status": "duplicate_ignored",
		})
		return
	}

	feedback, err := h.service.Append(r.Context(), entities.FeedbackDraft{
		Name:    payload.Name,
		Email:   payload.Email,
		Rating:  payload.Rating,
		Comment: payload.Comment,
		Page:    payload.Page,
		Device:  r.UserAgent(),
	})
	if err != nil {
		// a rejected or failed submission may be retried
		_ = h.cache.Delete(r.Context(), dupKey)
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"status": "received",
		"id":     feedback.ID,
	})
}

// ListFeedback handles GET /api/feedback
func (h *FeedbackHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAll(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"feedback": records,
		"count":    len(records),
	})
}

// ExportFeedback handles GET /api/feedback/export
func (h *FeedbackHandler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", analytics.ExportContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+analytics.ExportFilename+`"`)
	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("csv export failed")
	}
}

func (h *FeedbackHandler) isDuplicate(ctx context.Context, key string) bool {
	stored, err := h.cache.SetNX(ctx, key, []byte("1"), int(feedbackDedupWindow.Seconds()))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("duplicate check failed")
		return false
	}
	return !stored
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func feedbackFingerprint(payload feedbackRequest, ip string) string {
	normalized := []string{
		strconv.Itoa(payload.Rating),
		normalizeText(payload.Name),
		normalizeText(payload.Comment),
		strings.ToLower(strings.TrimSpace(payload.Email)),
		strings.ToLower(strings.TrimSpace(payload.Page)),
		ip,
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

func normalizeText(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
