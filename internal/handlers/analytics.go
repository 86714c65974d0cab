package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/services"
)

// AnalyticsHandler serves platform statistics
type AnalyticsHandler struct {
	svc    *services.AnalyticsService
	logger *zap.SugaredLogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc *services.AnalyticsService, logger *zap.SugaredLogger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

// Stats handles GET /api/v1/analytics/stats
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to compute platform stats", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Trends handles GET /api/v1/analytics/trends?days=N
func (h *AnalyticsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 90 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = parsed
	}

	points, err := h.svc.Trends(r.Context(), days)
	if err != nil {
		h.logger.Errorw("Failed to compute trends", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute trends")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"days":   days,
		"trends": points,
	})
}

// Categories handles GET /api/v1/analytics/categories
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.CategoryDistribution(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to compute category distribution", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to compute category distribution")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": counts,
	})
}
