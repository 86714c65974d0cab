package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/services"
)

// ActivityHandler handles audit trail endpoints
type ActivityHandler struct {
	svc    *services.ActivityService
	logger *zap.SugaredLogger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(svc *services.ActivityService, logger *zap.SugaredLogger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

// ByReport handles GET /api/v1/reports/{id}/activity
func (h *ActivityHandler) ByReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Report ID required")
		return
	}

	logs, err := h.svc.ByReport(r.Context(), id, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

// Recent handles GET /api/v1/activity/recent
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Recent(r.Context(), 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch recent activity")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}
