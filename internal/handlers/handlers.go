package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tabletennis/internal/middleware"
	"tabletennis/internal/money"
	"tabletennis/internal/services"

	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

var kindStatus = map[services.Kind]int{
	services.KindValidation:       http.StatusBadRequest,
	services.KindNotFound:         http.StatusNotFound,
	services.KindStateConflict:    http.StatusBadRequest,
	services.KindPermissionDenied: http.StatusForbidden,
}

var errorCodes = map[error]string{
	services.ErrInvalidTimeRange:     "invalid_time_range",
	services.ErrInvalidAmount:        "invalid_amount",
	services.ErrInvalidCancelParty:   "invalid_cancel_party",
	services.ErrInvalidGroup:         "invalid_group_level",
	services.ErrInvalidMethod:        "invalid_payment_method",
	services.ErrMissingField:         "missing_field",
	services.ErrConfirmRequired:      "confirmation_required",
	services.ErrTableNotInCampus:     "table_not_in_campus",
	services.ErrReservationNotFound:  "reservation_not_found",
	services.ErrCoachNotFound:        "coach_not_found",
	services.ErrPairingNotFound:      "pairing_not_found",
	services.ErrMessageNotFound:      "message_not_found",
	services.ErrPairingRequired:      "pairing_required",
	services.ErrTimeConflict:         "time_conflict",
	services.ErrNoTableAvailable:     "no_table_available",
	services.ErrInvalidState:         "invalid_state",
	services.ErrInsufficientFunds:    "insufficient_funds",
	services.ErrTooLateToCancel:      "too_late_to_cancel",
	services.ErrQuotaExceeded:        "quota_exceeded",
	services.ErrCancelAlreadyPending: "cancel_already_pending",
	services.ErrAlreadySignedUp:      "already_signed_up",
	services.ErrRegistrationClosed:   "registration_closed",
	services.ErrNotEnoughPlayers:     "not_enough_players",
	services.ErrGroupTooLarge:        "group_too_large",
	services.ErrStudentPairingLimit:  "student_pairing_limit",
	services.ErrCoachPairingLimit:    "coach_pairing_limit",
	services.ErrInvalidRating:        "invalid_rating",
	services.ErrCommentTooLong:       "comment_too_long",
	services.ErrLessonNotCompleted:   "lesson_not_completed",
	services.ErrAlreadyReviewed:      "already_reviewed",
	services.ErrPermissionDenied:     "permission_denied",
	money.ErrTooManyDecimals:         "invalid_amount",
	money.ErrInvalidAmount:           "invalid_amount",
	money.ErrNonPositive:             "invalid_amount",
}

// respondServiceError maps a service error onto a status and a stable code.
// Internal errors are logged and hidden from the caller.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.Classify(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	for target, code := range errorCodes {
		if errors.Is(err, target) {
			respondError(w, status, code)
			return
		}
	}
	respondError(w, status, kind.String())
}

// actorFrom reads the caller set by middleware.Auth.
func actorFrom(r *http.Request) (services.Actor, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: middleware.RoleFromContext(r.Context())}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload")
		return false
	}
	return true
}
