package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/models"
	"github.com/fixcity/report-server/internal/services"
)

// TechnicianHandler handles technician endpoints
type TechnicianHandler struct {
	svc    *services.TechnicianService
	logger *zap.SugaredLogger
}

// NewTechnicianHandler creates a new technician handler
func NewTechnicianHandler(svc *services.TechnicianService, logger *zap.SugaredLogger) *TechnicianHandler {
	return &TechnicianHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/technicians
func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	specialization := models.Category(r.URL.Query().Get("specialization"))
	if specialization != "" && !specialization.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown specialization")
		return
	}

	techs, err := h.svc.List(r.Context(), specialization)
	if err != nil {
		h.logger.Errorw("Failed to list technicians", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to list technicians")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"technicians": techs,
		"count":       len(techs),
	})
}

// Get handles GET /api/v1/technicians/{id}
func (h *TechnicianHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tech, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTechnicianNotFound) {
			respondError(w, http.StatusNotFound, "Technician not found")
			return
		}
		h.logger.Errorw("Failed to fetch technician", "error", err, "technician_id", id)
		respondError(w, http.StatusInternalServerError, "Failed to fetch technician")
		return
	}

	respondJSON(w, http.StatusOK, tech)
}
