package handlers

import (
	"net/http"
	"strings"

	"tabletennis/internal/money"
	"tabletennis/internal/services"
	"tabletennis/internal/validator"

	"github.com/go-chi/chi/v5"
)

type createReservationRequest struct {
	CampusID  string `json:"campus_id"`
	CoachID   string `json:"coach_id"`
	StudentID string `json:"student_id"`
	TableID   string `json:"table_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StudentID == "" {
		req.StudentID = actor.ID
	}
	for _, id := range []string{req.CampusID, req.CoachID, req.StudentID} {
		if validator.ValidateID(id) != nil {
			respondError(w, http.StatusBadRequest, "missing_field")
			return
		}
	}
	if req.TableID != "" && validator.ValidateID(req.TableID) != nil {
		respondError(w, http.StatusBadRequest, "invalid_table_id")
		return
	}
	start, err := validator.ParseTime(req.StartTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_time")
		return
	}
	end, err := validator.ParseTime(req.EndTime)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_time")
		return
	}

	created, err := h.reservations.Create(r.Context(), actor, services.CreateReservationRequest{
		CampusID:  req.CampusID,
		CoachID:   req.CoachID,
		StudentID: req.StudentID,
		TableID:   req.TableID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	tableID := ""
	if created.TableID != nil {
		tableID = *created.TableID
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"reservation_id": created.ID,
		"table_id":       tableID,
		"status":         created.Status,
	})
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	status := query.Get("status")
	if validator.ValidateStatus(status) != nil {
		respondError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	limit, offset := page(query.Get("page"), query.Get("limit"), 20)
	rows, err := h.reservations.List(r.Context(), actor, status, limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.reservations.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	fee, err := h.reservations.Confirm(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "fee": money.Format(fee)})
}

func (h *Handler) RejectReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.reservations.Reject(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.reservations.Complete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type cancelRequest struct {
	By      string `json:"by"`
	Confirm bool   `json:"confirm"`
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validator.ValidateCancelBy(req.By) != nil {
		respondError(w, http.StatusBadRequest, "invalid_cancel_party")
		return
	}
	result, err := h.reservations.RequestCancel(r.Context(), actor, chi.URLParam(r, "id"), req.By, req.Confirm)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if result.PendingConfirm {
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "pending_confirm": true})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"canceled": result.Canceled,
		"refund":   money.Format(result.Refund),
	})
}

func (h *Handler) CancelQuota(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	by := strings.TrimSpace(query.Get("by"))
	if validator.ValidateCancelBy(by) != nil {
		respondError(w, http.StatusBadRequest, "invalid_cancel_party")
		return
	}
	actorID := query.Get("actor_id")
	if actorID == "" {
		actorID = actor.ID
	}
	status, err := h.quota.Status(r.Context(), actor, by, actorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) AvailableTables(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	campusID := query.Get("campus_id")
	if validator.ValidateID(campusID) != nil {
		respondError(w, http.StatusBadRequest, "missing_field")
		return
	}
	start, err := validator.ParseTime(query.Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_time")
		return
	}
	end, err := validator.ParseTime(query.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_time")
		return
	}
	tables, err := h.calendar.AvailableTables(r.Context(), campusID, start, end)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tables)
}

type adminCancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) AdminCancelReservation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adminCancelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	refund, err := h.reservations.AdminCancel(r.Context(), actor, chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "refund": money.Format(refund)})
}
