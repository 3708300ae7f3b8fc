package handlers

import (
	"net/http"

	"tabletennis/internal/validator"
)

type pairingRequest struct {
	CoachID   string `json:"coach_id"`
	StudentID string `json:"student_id"`
	Approve   *bool  `json:"approve"`
}

func (h *Handler) SelectCoach(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req pairingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StudentID == "" {
		req.StudentID = actor.ID
	}
	if validator.ValidateID(req.CoachID) != nil || validator.ValidateID(req.StudentID) != nil {
		respondError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := h.pairing.Select(r.Context(), actor, req.CoachID, req.StudentID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) DecidePairing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req pairingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CoachID == "" {
		req.CoachID = actor.ID
	}
	if validator.ValidateID(req.CoachID) != nil || validator.ValidateID(req.StudentID) != nil || req.Approve == nil {
		respondError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := h.pairing.Decide(r.Context(), actor, req.CoachID, req.StudentID, *req.Approve); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) PendingPairings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	coachID := r.URL.Query().Get("coach_id")
	if coachID == "" {
		coachID = actor.ID
	}
	rows, err := h.pairing.Pending(r.Context(), actor, coachID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
