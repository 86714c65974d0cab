// Package handlers contains HTTP request handlers for the report server
// API. Handlers parse requests, call services, and return JSON responses;
// core engine errors are translated to status codes here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/lifecycle"
	"github.com/fixcity/report-server/internal/models"
	"github.com/fixcity/report-server/internal/services"
)

// ReportHandler handles report-related HTTP endpoints
type ReportHandler struct {
	reportSvc   *services.ReportService
	activitySvc *services.ActivityService
	logger      *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(rs *services.ReportService, as *services.ActivityService, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{reportSvc: rs, activitySvc: as, logger: logger}
}

// Submit handles POST /api/v1/reports.
// Runs the duplicate engine on the submission and reports back whether the
// issue was merged into an existing canonical report.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.reportSvc.Submit(r.Context(), &req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Errorw("Failed to submit report", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to submit report")
		return
	}

	h.logger.Infow("Report submitted",
		"id", result.Report.ID,
		"category", result.Report.Category,
		"is_duplicate", result.IsDuplicate,
	)

	respondJSON(w, http.StatusCreated, result)
}

// Get handles GET /api/v1/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.reportSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			respondError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.logger.Errorw("Failed to fetch report", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// List handles GET /api/v1/reports with optional status/category/userId filters.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := services.ListFilter{
		Status:   models.Status(r.URL.Query().Get("status")),
		Category: models.Category(r.URL.Query().Get("category")),
		UserID:   r.URL.Query().Get("userId"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}
	if filter.Category != "" && !filter.Category.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown category filter")
		return
	}

	reports, err := h.reportSvc.List(r.Context(), filter)
	if err != nil {
		h.logger.Errorw("Failed to list reports", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// Update handles PATCH /api/v1/reports/{id}.
// Status changes run through the lifecycle state machine; refusals come
// back as structured errors with the offending transition spelled out.
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update models.ReportUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, events, err := h.reportSvc.Update(r.Context(), id, &update)
	if err != nil {
		h.respondUpdateError(w, id, err)
		return
	}

	eventNames := make([]string, len(events))
	for i, e := range events {
		eventNames[i] = string(e)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
		"events": eventNames,
	})
}

func (h *ReportHandler) respondUpdateError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, services.ErrReportNotFound) {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	var terr *lifecycle.TransitionError
	if errors.As(err, &terr) {
		status := http.StatusConflict
		if terr.Reason != lifecycle.ReasonInvalidTransition {
			// Guard failures are fixable by the caller supplying the
			// missing field, not a state conflict.
			status = http.StatusBadRequest
		}
		respondJSON(w, status, map[string]interface{}{
			"error":  terr.Error(),
			"reason": terr.Reason,
			"from":   terr.From,
			"to":     terr.To,
		})
		return
	}

	h.logger.Errorw("Failed to update report", "id", id, "error", err)
	respondError(w, http.StatusInternalServerError, "Failed to update report")
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
