package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/feediq/internal/analytics"
)

// DashboardService computes the metrics bundle
type DashboardService interface {
	Dashboard(ctx context.Context) (analytics.Bundle, error)
}

// DashboardHandler serves the dashboard metrics
type DashboardHandler struct {
	service DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Dashboard(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	respondWithJSON(w, http.StatusOK, bundle)
}
