package services

import (
	"database/sql"
	"errors"

	"tabletennis/internal/money"
	"tabletennis/internal/roundrobin"
)

var (
	ErrInvalidTimeRange   = errors.New("end time must be after start time")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCancelParty = errors.New("cancel party must be student or coach")
	ErrInvalidGroup       = errors.New("group level must be A, B or C")
	ErrInvalidMethod      = errors.New("unsupported payment method")
	ErrMissingField       = errors.New("required field missing")
	ErrConfirmRequired    = errors.New("counterparty must confirm the cancellation")
	ErrTableNotInCampus   = errors.New("table does not belong to campus")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrCommentTooLong     = errors.New("review comment too long")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrCoachNotFound       = errors.New("coach not found")
	ErrPairingNotFound     = errors.New("pairing request not found")
	ErrMessageNotFound     = errors.New("message not found")

	ErrPairingRequired      = errors.New("approved coach pairing required")
	ErrTimeConflict         = errors.New("time conflict")
	ErrNoTableAvailable     = errors.New("no table available")
	ErrInvalidState         = errors.New("operation not allowed in current status")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrTooLateToCancel      = errors.New("cancellation window has closed")
	ErrQuotaExceeded        = errors.New("monthly cancellation quota exceeded")
	ErrCancelAlreadyPending = errors.New("cancellation already requested")
	ErrAlreadySignedUp      = errors.New("already signed up for this tournament")
	ErrRegistrationClosed   = errors.New("tournament registration closed")
	ErrNotEnoughPlayers     = errors.New("not enough players to schedule")
	ErrGroupTooLarge        = errors.New("group too large to schedule")
	ErrStudentPairingLimit  = errors.New("student already has the maximum number of coaches")
	ErrCoachPairingLimit    = errors.New("coach already has the maximum number of students")
	ErrLessonNotCompleted   = errors.New("lesson has not been completed")
	ErrAlreadyReviewed      = errors.New("lesson already reviewed")

	ErrPermissionDenied = errors.New("permission denied")
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindStateConflict
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindPermissionDenied:
		return "permission_denied"
	default:
		return "internal"
	}
}

var kinds = map[error]Kind{
	ErrInvalidTimeRange:         KindValidation,
	ErrInvalidAmount:            KindValidation,
	ErrInvalidCancelParty:       KindValidation,
	ErrInvalidGroup:             KindValidation,
	ErrInvalidMethod:            KindValidation,
	ErrMissingField:             KindValidation,
	ErrConfirmRequired:          KindValidation,
	ErrTableNotInCampus:         KindValidation,
	ErrInvalidRating:            KindValidation,
	ErrCommentTooLong:           KindValidation,
	money.ErrInvalidAmount:      KindValidation,
	money.ErrTooManyDecimals:    KindValidation,
	money.ErrNonPositive:        KindValidation,
	roundrobin.ErrInvalidPlayer: KindValidation,

	ErrReservationNotFound: KindNotFound,
	ErrCoachNotFound:       KindNotFound,
	ErrPairingNotFound:     KindNotFound,
	ErrMessageNotFound:     KindNotFound,
	sql.ErrNoRows:          KindNotFound,

	ErrPairingRequired:      KindStateConflict,
	ErrTimeConflict:         KindStateConflict,
	ErrNoTableAvailable:     KindStateConflict,
	ErrInvalidState:         KindStateConflict,
	ErrInsufficientFunds:    KindStateConflict,
	ErrTooLateToCancel:      KindStateConflict,
	ErrQuotaExceeded:        KindStateConflict,
	ErrCancelAlreadyPending: KindStateConflict,
	ErrAlreadySignedUp:      KindStateConflict,
	ErrRegistrationClosed:   KindStateConflict,
	ErrNotEnoughPlayers:     KindStateConflict,
	ErrGroupTooLarge:        KindStateConflict,
	ErrStudentPairingLimit:  KindStateConflict,
	ErrCoachPairingLimit:    KindStateConflict,
	ErrLessonNotCompleted:   KindStateConflict,
	ErrAlreadyReviewed:      KindStateConflict,

	ErrPermissionDenied: KindPermissionDenied,
}

// Classify maps an error returned by this package onto the API taxonomy.
// Anything unrecognised is Internal.
func Classify(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for target, kind := range kinds {
		if errors.Is(err, target) {
			return kind
		}
	}
	return KindInternal
}
