package handlers

import (
	"net/http"

	"tabletennis/internal/validator"
)

type signupRequest struct {
	UserID     string `json:"user_id"`
	GroupLevel string `json:"group_level"`
}

func (h *Handler) TournamentSignup(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = actor.ID
	}
	if validator.ValidateGroupLevel(req.GroupLevel) != nil {
		respondError(w, http.StatusBadRequest, "invalid_group_level")
		return
	}
	signup, err := h.tournament.Signup(r.Context(), actor, req.UserID, req.GroupLevel)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"signup_id": signup.ID,
		"cycle":     signup.Cycle,
	})
}

type scheduleRequest struct {
	GroupLevel string `json:"group_level"`
}

func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req scheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validator.ValidateGroupLevel(req.GroupLevel) != nil {
		respondError(w, http.StatusBadRequest, "invalid_group_level")
		return
	}
	matches, err := h.tournament.GenerateSchedule(r.Context(), actor, req.GroupLevel)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "created": len(matches)})
}

func (h *Handler) TournamentInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.tournament.Info(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) TournamentParticipants(w http.ResponseWriter, r *http.Request) {
	rows, err := h.tournament.Participants(r.Context(), r.URL.Query().Get("group_level"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) TournamentSchedule(w http.ResponseWriter, r *http.Request) {
	rows, err := h.tournament.Schedule(r.Context(), r.URL.Query().Get("group_level"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
