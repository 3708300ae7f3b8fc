package handlers

import (
	"net/http"

	"tabletennis/internal/models"
	"tabletennis/internal/services"
	"tabletennis/internal/store"
)

type submitReviewRequest struct {
	ReservationID string `json:"reservation_id"`
	Role          string `json:"role"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// reviewRole falls back to the caller's own role when none is given.
func reviewRole(raw string, actor services.Actor) string {
	if raw != "" {
		return raw
	}
	switch actor.Role {
	case models.RoleStudent:
		return models.CancelByStudent
	case models.RoleCoach:
		return models.CancelByCoach
	}
	return ""
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req submitReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := h.reviews.Submit(r.Context(), actor, services.SubmitReviewRequest{
		ReservationID: req.ReservationID,
		Role:          reviewRole(req.Role, actor),
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit, offset := page(query.Get("page"), query.Get("limit"), 50)
	rows, err := h.reviews.List(r.Context(), actor, store.ReviewFilter{
		ReservationID: query.Get("reservation_id"),
		CoachID:       query.Get("coach_id"),
		StudentID:     query.Get("student_id"),
		ReviewerRole:  query.Get("reviewer_role"),
	}, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) PendingReviews(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.reviews.Pending(r.Context(), actor, reviewRole(r.URL.Query().Get("role"), actor))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
