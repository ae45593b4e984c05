package routes

import (
	"net/http"

	"github.com/zatekoja/feediq/internal/api/handlers"
	"github.com/zatekoja/feediq/internal/api/middleware"
	"github.com/zatekoja/feediq/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	feedbackHandler  *handlers.FeedbackHandler
	dashboardHandler *handlers.DashboardHandler
	sseHandler       *handlers.SSEHandler
	intakeHandler    *handlers.IntakeHandler

	metrics         *observability.Metrics
	businessMetrics *observability.BusinessMetrics
	allowedOrigins  []string
}

// NewRouter creates a new router. sseHandler may be nil when change
// notifications are unavailable; businessMetrics may be nil to omit /metrics.
func NewRouter(
	feedbackHandler *handlers.FeedbackHandler,
	dashboardHandler *handlers.DashboardHandler,
	sseHandler *handlers.SSEHandler,
	intakeHandler *handlers.IntakeHandler,
	metrics *observability.Metrics,
	businessMetrics *observability.BusinessMetrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		feedbackHandler:  feedbackHandler,
		dashboardHandler: dashboardHandler,
		sseHandler:       sseHandler,
		intakeHandler:    intakeHandler,
		metrics:          metrics,
		businessMetrics:  businessMetrics,
		allowedOrigins:   allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	if r.businessMetrics != nil {
		r.mux.Handle("GET /metrics", r.businessMetrics.Handler())
	}

	// Feedback endpoints
	r.mux.HandleFunc("POST /api/feedback", r.feedbackHandler.SubmitFeedback)
	r.mux.Handle("GET /api/feedback", middleware.ResponseOptimization(http.HandlerFunc(r.feedbackHandler.ListFeedback)))
	r.mux.Handle("GET /api/feedback/export", middleware.Compression(http.HandlerFunc(r.feedbackHandler.ExportFeedback)))
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/feedback/stream", r.sseHandler.StreamFeedback)
	}

	// Dashboard
	r.mux.Handle("GET /api/dashboard", middleware.ResponseOptimization(http.HandlerFunc(r.dashboardHandler.GetDashboard)))

	// Conversational intake
	r.mux.HandleFunc("POST /api/intake/sessions", r.intakeHandler.StartSession)
	r.mux.HandleFunc("GET /api/intake/sessions/{id}", r.intakeHandler.GetSession)
	r.mux.HandleFunc("POST /api/intake/sessions/{id}/input", r.intakeHandler.HandleInput)
	r.mux.HandleFunc("DELETE /api/intake/sessions/{id}", r.intakeHandler.CloseSession)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so preflights never reach the mux
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
