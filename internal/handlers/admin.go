package handlers

import (
	"net/http"
	"strings"
	"time"

	"tabletennis/internal/middleware"
	"tabletennis/internal/models"
	"tabletennis/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := page(query.Get("page"), query.Get("limit"), 50)
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to load audit logs")
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) LicenseStatus(w http.ResponseWriter, r *http.Request) {
	if h.license == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	respondJSON(w, http.StatusOK, h.license.Status())
}

type activateLicenseRequest struct {
	PurchaserOrg string `json:"purchaser_org"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// ActivateLicense records a purchased license and reloads the cached state,
// so a lapsed deployment unlocks without waiting for the next refresh.
func (h *Handler) ActivateLicense(w http.ResponseWriter, r *http.Request) {
	if h.licenses == nil || h.license == nil {
		respondError(w, http.StatusServiceUnavailable, "license_store_unavailable")
		return
	}
	var req activateLicenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	org := strings.TrimSpace(req.PurchaserOrg)
	if org == "" || req.StartDate == "" || req.EndDate == "" {
		respondError(w, http.StatusBadRequest, "missing_field")
		return
	}
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "invalid_license_period")
		return
	}
	lic := models.License{ID: uuid.NewString(), PurchaserOrg: org, StartDate: start, EndDate: end}
	if err := h.licenses.Create(r.Context(), lic); err != nil {
		log.Error().Err(err).Msg("failed to store license")
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if err := h.license.Refresh(r.Context()); err != nil {
		log.Error().Err(err).Msg("license refresh after activation failed")
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	log.Info().Str("license_id", lic.ID).Str("purchaser_org", org).Str("actor_id", userID).Msg("license activated")
	respondJSON(w, http.StatusOK, h.license.Status())
}

// WS upgrades an authenticated caller to a push channel carrying message and
// balance events.
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, actor.ID)
}
