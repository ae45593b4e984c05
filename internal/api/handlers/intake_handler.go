package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/feediq/internal/domain/providers"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
	"github.com/zatekoja/feediq/internal/intake"
	apperrors "github.com/zatekoja/feediq/pkg/errors"
)

const (
	maxIntakeBody = 16 << 10

	intakeSessionLimit  = 30
	intakeSessionWindow = time.Hour
)

// IntakeHandler exposes conversational intake sessions over HTTP
type IntakeHandler struct {
	registry *intake.Registry
	metrics  *observability.BusinessMetrics
	limiter  rateLimiter
}

// NewIntakeHandler creates a new intake handler. metrics may be nil. Session
// starts are limited per client in process memory until SetCache is called.
func NewIntakeHandler(registry *intake.Registry, metrics *observability.BusinessMetrics) *IntakeHandler {
	return &IntakeHandler{
		registry: registry,
		metrics:  metrics,
		limiter: rateLimiter{
			cache:  localCache(),
			prefix: providers.CacheKeyIntakeRatePrefix,
			limit:  intakeSessionLimit,
			window: intakeSessionWindow,
		},
	}
}

// SetCache moves the session start limit to a shared cache
func (h *IntakeHandler) SetCache(cacheProvider providers.CacheProvider) {
	if cacheProvider != nil {
		h.limiter.cache = cacheProvider
	}
}

type startSessionRequest struct {
	Page string `json:"page" validate:"max=2048"`
}

type inputRequest struct {
	Kind   intake.InputKind `json:"kind" validate:"required,oneof=accept decline answer rate hover close"`
	Text   string           `json:"text" validate:"max=4000"`
	Rating int              `json:"rating"`
}

type rejectedResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Session intake.Snapshot `json:"session"`
}

// StartSession handles POST /api/intake/sessions
func (h *IntakeHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var payload startSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntakeBody)).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if !h.limiter.allow(r.Context(), clientIP(r)) {
		h.limiter.reject(w)
		return
	}

	page := strings.TrimSpace(payload.Page)
	if page == "" {
		page = r.Referer()
	}

	session := h.registry.Start(providers.StaticEnvironment{
		PageURI:   page,
		UserAgent: r.UserAgent(),
	})
	respondWithJSON(w, http.StatusCreated, session.Snapshot())
}

// GetSession handles GET /api/intake/sessions/{id}
func (h *IntakeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, session.Snapshot())
}

// HandleInput handles POST /api/intake/sessions/{id}/input
func (h *IntakeHandler) HandleInput(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload inputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntakeBody)).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := validate.Struct(payload); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	_, err := session.Handle(r.Context(), intake.Input{
		Kind:   payload.Kind,
		Text:   payload.Text,
		Rating: payload.Rating,
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			h.metrics.ObserveRejection(appErr.Code)
			respondWithJSON(w, http.StatusUnprocessableEntity, rejectedResponse{
				Error:   appErr.Message,
				Code:    appErr.Code,
				Session: session.Snapshot(),
			})
			return
		}
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session.Snapshot())
}

// CloseSession handles DELETE /api/intake/sessions/{id}
func (h *IntakeHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	session.Close()
	respondWithJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IntakeHandler) lookup(w http.ResponseWriter, r *http.Request) (*intake.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return nil, false
	}
	session, ok := h.registry.Get(id)
	if !ok {
		respondWithError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}
