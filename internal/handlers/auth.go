package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fixcity/report-server/internal/auth"
)

// AuthHandler handles the login endpoints
type AuthHandler struct {
	svc    *auth.Service
	logger *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *auth.Service, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// SendOTP handles POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aadhaar string `json:"aadhaar"`
		Mobile  string `json:"mobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.SendOTP(r.Context(), req.Aadhaar, req.Mobile); err != nil {
		if errors.Is(err, auth.ErrMalformedInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Aadhaar and mobile number do not match our records")
			return
		}
		h.logger.Errorw("Failed to send OTP", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

// VerifyOTP handles POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, identity, err := h.svc.VerifyOTP(r.Context(), req.Mobile, req.OTP)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid or expired OTP")
			return
		}
		h.logger.Errorw("Failed to verify OTP", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  identity,
	})
}

// OfficerLogin handles POST /api/v1/auth/officer-login
func (h *AuthHandler) OfficerLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BadgeID  string `json:"badge_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.credentialLogin(w, r, req.BadgeID, req.Password, h.svc.OfficerLogin)
}

// TechnicianLogin handles POST /api/v1/auth/technician-login
func (h *AuthHandler) TechnicianLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TechnicianID string `json:"technician_id"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.credentialLogin(w, r, req.TechnicianID, req.Password, h.svc.TechnicianLogin)
}

func (h *AuthHandler) credentialLogin(w http.ResponseWriter, r *http.Request, id, password string,
	login func(ctx context.Context, id, password string) (string, *auth.Identity, error)) {
	if id == "" || password == "" {
		respondError(w, http.StatusBadRequest, "ID and password are required")
		return
	}

	token, identity, err := login(r.Context(), id, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Errorw("Login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  identity,
	})
}
