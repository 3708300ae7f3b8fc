package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tabletennis/internal/db"
	"tabletennis/internal/models"
	"tabletennis/internal/money"
	"tabletennis/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ReservationStore interface {
	Create(ctx context.Context, tx store.Execer, r models.Reservation) error
	GetByID(ctx context.Context, id string) (models.Reservation, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Reservation, error)
	TransitionStatus(ctx context.Context, tx store.Execer, id, from, to string) (int64, error)
	MarkCancelRequested(ctx context.Context, tx store.Execer, id, expected, by string, at time.Time) (int64, error)
	ListForUser(ctx context.Context, userID, status string, limit, offset int) ([]models.Reservation, error)
}

type PairingChecker interface {
	IsApproved(ctx context.Context, q store.Getter, coachID, studentID string) (bool, error)
}

type CoachLookup interface {
	GetCoachForUpdate(ctx context.Context, tx store.Getter, coachID string) (models.User, error)
}

// LedgerWriter is the part of the ledger used inside another service's
// transaction.
type LedgerWriter interface {
	CreditTx(ctx context.Context, tx store.Execer, e Entry) error
	DebitTx(ctx context.Context, tx store.Execer, e Entry) error
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type CancelRules struct {
	LeadTime   time.Duration
	RequestTTL time.Duration
}

const (
	titleNewRequest   = "New reservation request"
	titleConfirmed    = "Reservation confirmed"
	titleRejected     = "Reservation rejected"
	titleCompleted    = "Lesson completed"
	titleCancelAsk    = "Cancellation request"
	titleCanceled     = "Reservation canceled"
	titleAdminCancel  = "Reservation canceled by administrator"
	eventCreated      = "reservation.created"
	eventConfirmed    = "reservation.confirmed"
	eventRejected     = "reservation.rejected"
	eventCompleted    = "reservation.completed"
	eventCanceled     = "reservation.canceled"
	eventCancelAsked  = "reservation.cancel_requested"
	reservationEntity = "reservation"
)

type ReservationService struct {
	txRunner     db.TxRunner
	reservations ReservationStore
	calendar     *CalendarService
	pairings     PairingChecker
	coaches      CoachLookup
	ledger       LedgerWriter
	quota        *QuotaTracker
	rules        CancelRules
	effects      Effects
	now          func() time.Time
}

func NewReservationService(
	txRunner db.TxRunner,
	reservations ReservationStore,
	calendar *CalendarService,
	pairings PairingChecker,
	coaches CoachLookup,
	ledger LedgerWriter,
	quota *QuotaTracker,
	rules CancelRules,
	effects Effects,
	now func() time.Time,
) *ReservationService {
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		txRunner:     txRunner,
		reservations: reservations,
		calendar:     calendar,
		pairings:     pairings,
		coaches:      coaches,
		ledger:       ledger,
		quota:        quota,
		rules:        rules,
		effects:      effects,
		now:          now,
	}
}

type CreateReservationRequest struct {
	CampusID  string
	CoachID   string
	StudentID string
	TableID   string
	Start     time.Time
	End       time.Time
}

type CancelResult struct {
	PendingConfirm bool
	Canceled       bool
	Refund         decimal.Decimal
}

// Create books a pending reservation. Pairing, overlap and table checks run
// in the same serializable transaction as the insert; the overlap exclusion
// constraints catch anything that still slips through.
func (s *ReservationService) Create(ctx context.Context, actor Actor, req CreateReservationRequest) (models.Reservation, error) {
	if req.CampusID == "" || req.CoachID == "" || req.StudentID == "" {
		return models.Reservation{}, ErrMissingField
	}
	if !req.End.After(req.Start) {
		return models.Reservation{}, ErrInvalidTimeRange
	}
	if !actor.Owns(req.StudentID) {
		return models.Reservation{}, ErrPermissionDenied
	}

	var created models.Reservation
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		approved, err := s.pairings.IsApproved(ctx, tx, req.CoachID, req.StudentID)
		if err != nil {
			return err
		}
		if !approved {
			return ErrPairingRequired
		}
		conflict, err := s.calendar.store.HasPartyConflict(ctx, tx, req.CoachID, req.StudentID, req.Start, req.End)
		if err != nil {
			return err
		}
		if conflict {
			return ErrTimeConflict
		}

		tableID := req.TableID
		if tableID != "" {
			if err := s.calendar.checkTable(ctx, tx, tableID, req.CampusID, req.Start, req.End); err != nil {
				return err
			}
		} else {
			tableID, err = s.calendar.AssignTable(ctx, tx, req.CampusID, req.Start, req.End)
			if err != nil {
				return err
			}
		}

		created = models.Reservation{
			ID:              uuid.NewString(),
			CampusID:        req.CampusID,
			CoachID:         req.CoachID,
			StudentID:       req.StudentID,
			TableID:         &tableID,
			StartTime:       req.Start,
			EndTime:         req.End,
			Status:          models.StatusPending,
			CancelRequestBy: models.CancelByNone,
		}
		return s.reservations.Create(ctx, tx, created)
	})
	if err != nil {
		if db.IsExclusionViolation(err) {
			return models.Reservation{}, ErrTimeConflict
		}
		return models.Reservation{}, err
	}

	s.effects.notify(ctx, created.CoachID, titleNewRequest,
		fmt.Sprintf("A student requested a lesson from %s to %s. Reservation ID: %s",
			created.StartTime.Format(time.RFC3339), created.EndTime.Format(time.RFC3339), created.ID))
	s.effects.audit(ctx, actor.ID, "reservation_create", reservationEntity, created.ID, map[string]any{
		"coach_id":   created.CoachID,
		"student_id": created.StudentID,
		"table_id":   tableIDOf(created),
	})
	s.effects.publish(ctx, eventCreated, reservationEvent(created))
	return created, nil
}

// Confirm accepts a pending reservation and charges the student. The debit
// and the status change commit together or not at all.
func (s *ReservationService) Confirm(ctx context.Context, actor Actor, id string) (decimal.Decimal, error) {
	var (
		r   models.Reservation
		fee decimal.Decimal
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if actor.ID != r.CoachID && !actor.IsAdmin() {
			return ErrPermissionDenied
		}
		if r.Status != models.StatusPending {
			return ErrInvalidState
		}
		fee, err = s.fee(ctx, tx, r)
		if err != nil {
			return err
		}
		if fee.IsPositive() {
			err = s.ledger.DebitTx(ctx, tx, Entry{
				UserID:      r.StudentID,
				Amount:      fee,
				Type:        models.TxReservationFee,
				Description: "Lesson fee",
				RefID:       r.ID,
			})
			if err != nil {
				return err
			}
		}
		return s.transition(ctx, tx, r.ID, models.StatusPending, models.StatusConfirmed)
	})
	if err != nil {
		return decimal.Zero, err
	}
	r.Status = models.StatusConfirmed

	s.effects.notify(ctx, r.StudentID, titleConfirmed,
		fmt.Sprintf("Your lesson at %s was confirmed. Fee charged: %s. Reservation ID: %s",
			r.StartTime.Format(time.RFC3339), money.Format(fee), r.ID))
	s.effects.audit(ctx, actor.ID, "reservation_confirm", reservationEntity, r.ID, map[string]any{"fee": money.Format(fee)})
	s.effects.publish(ctx, eventConfirmed, withFee(reservationEvent(r), fee))
	s.pushBalance(ctx, r.StudentID, models.TxReservationFee)
	return fee, nil
}

func (s *ReservationService) Reject(ctx context.Context, actor Actor, id string) error {
	r, err := s.simpleTransition(ctx, id, models.StatusPending, models.StatusRejected, func(r models.Reservation) bool {
		return actor.ID == r.CoachID || actor.IsAdmin()
	})
	if err != nil {
		return err
	}
	s.effects.notify(ctx, r.StudentID, titleRejected,
		fmt.Sprintf("Your lesson request for %s was declined. Reservation ID: %s", r.StartTime.Format(time.RFC3339), r.ID))
	s.effects.audit(ctx, actor.ID, "reservation_reject", reservationEntity, r.ID, nil)
	s.effects.publish(ctx, eventRejected, reservationEvent(r))
	return nil
}

func (s *ReservationService) Complete(ctx context.Context, actor Actor, id string) error {
	r, err := s.simpleTransition(ctx, id, models.StatusConfirmed, models.StatusCompleted, func(r models.Reservation) bool {
		return actor.ID == r.CoachID || actor.ID == r.StudentID || actor.IsAdmin()
	})
	if err != nil {
		return err
	}
	s.effects.notify(ctx, r.StudentID, titleCompleted,
		fmt.Sprintf("Your lesson was marked completed and can now be reviewed. Reservation ID: %s", r.ID))
	s.effects.audit(ctx, actor.ID, "reservation_complete", reservationEntity, r.ID, nil)
	s.effects.publish(ctx, eventCompleted, reservationEvent(r))
	return nil
}

// RequestCancel runs one step of the two-party cancellation handshake.
// The first call by either party records the request; the counterparty's call
// with confirm=true finalizes it and refunds a confirmed lesson.
func (s *ReservationService) RequestCancel(ctx context.Context, actor Actor, id, by string, confirm bool) (CancelResult, error) {
	if by != models.CancelByStudent && by != models.CancelByCoach {
		return CancelResult{}, ErrInvalidCancelParty
	}
	var (
		r      models.Reservation
		result CancelResult
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = CancelResult{}
		var err error
		r, err = s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if actor.ID == "" || actor.ID != r.PartyID(by) {
			return ErrPermissionDenied
		}
		if r.Status != models.StatusPending && r.Status != models.StatusConfirmed {
			return ErrInvalidState
		}
		now := s.now()
		if r.StartTime.Sub(now) <= s.rules.LeadTime {
			return ErrTooLateToCancel
		}
		if err := s.quota.check(ctx, tx, by, actor.ID); err != nil {
			return err
		}

		requested := s.openRequest(r, now)
		switch {
		case requested == models.CancelByNone:
			rows, err := s.reservations.MarkCancelRequested(ctx, tx, r.ID, r.CancelRequestBy, by, now)
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrInvalidState
			}
			r.CancelRequestBy = by
			result.PendingConfirm = true
			return nil
		case requested == by:
			return ErrCancelAlreadyPending
		case !confirm:
			return ErrConfirmRequired
		}
		// Finalizing consumes the initiator's quota, which may have filled
		// up through other requests since this one was opened.
		if err := s.quota.check(ctx, tx, requested, r.PartyID(requested)); err != nil {
			return err
		}

		refund, err := s.finalizeCancel(ctx, tx, r)
		if err != nil {
			return err
		}
		result.Canceled = true
		result.Refund = refund
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	if result.PendingConfirm {
		other := r.PartyID(counterparty(by))
		s.effects.notify(ctx, other, titleCancelAsk,
			fmt.Sprintf("The %s asked to cancel the lesson at %s. Please confirm. Reservation ID: %s",
				by, r.StartTime.Format(time.RFC3339), r.ID))
		s.effects.audit(ctx, actor.ID, "reservation_cancel_request", reservationEntity, r.ID, map[string]any{"by": by})
		s.effects.publish(ctx, eventCancelAsked, reservationEvent(r))
		return result, nil
	}

	s.announceCancel(ctx, r, titleCanceled,
		fmt.Sprintf("The lesson at %s was canceled by agreement.", r.StartTime.Format(time.RFC3339)), result.Refund)
	s.effects.audit(ctx, actor.ID, "reservation_cancel", reservationEntity, r.ID, map[string]any{
		"requested_by": r.CancelRequestBy,
		"confirmed_by": by,
		"refund":       money.Format(result.Refund),
	})
	return result, nil
}

// AdminCancel cancels an open reservation immediately, skipping the
// handshake, lead time and quota. A confirmed lesson is refunded.
func (s *ReservationService) AdminCancel(ctx context.Context, actor Actor, id, reason string) (decimal.Decimal, error) {
	if !actor.IsAdmin() {
		return decimal.Zero, ErrPermissionDenied
	}
	var (
		r      models.Reservation
		refund decimal.Decimal
	)
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status != models.StatusPending && r.Status != models.StatusConfirmed {
			return ErrInvalidState
		}
		// An open request is dropped so the admin cancel counts against nobody's quota.
		if r.CancelRequestBy != models.CancelByNone {
			rows, err := s.reservations.MarkCancelRequested(ctx, tx, r.ID, r.CancelRequestBy, models.CancelByNone, s.now())
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrInvalidState
			}
		}
		refund, err = s.finalizeCancel(ctx, tx, r)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	msg := fmt.Sprintf("The lesson at %s was canceled by an administrator.", r.StartTime.Format(time.RFC3339))
	if reason != "" {
		msg += " Reason: " + reason + "."
	}
	s.announceCancel(ctx, r, titleAdminCancel, msg, refund)
	s.effects.audit(ctx, actor.ID, "reservation_admin_cancel", reservationEntity, r.ID, map[string]any{
		"reason": reason,
		"refund": money.Format(refund),
	})
	return refund, nil
}

func (s *ReservationService) Get(ctx context.Context, actor Actor, id string) (models.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Reservation{}, ErrReservationNotFound
	}
	if err != nil {
		return models.Reservation{}, err
	}
	if actor.ID != r.CoachID && actor.ID != r.StudentID && !actor.IsAdmin() {
		return models.Reservation{}, ErrPermissionDenied
	}
	return r, nil
}

func (s *ReservationService) List(ctx context.Context, actor Actor, status string, limit, offset int) ([]models.Reservation, error) {
	return s.reservations.ListForUser(ctx, actor.ID, status, limit, offset)
}

// finalizeCancel refunds a confirmed lesson and moves r to canceled inside
// tx. It returns the refunded amount.
func (s *ReservationService) finalizeCancel(ctx context.Context, tx *sqlx.Tx, r models.Reservation) (decimal.Decimal, error) {
	refund := decimal.Zero
	if r.Status == models.StatusConfirmed {
		fee, err := s.fee(ctx, tx, r)
		if err != nil {
			return decimal.Zero, err
		}
		if fee.IsPositive() {
			err = s.ledger.CreditTx(ctx, tx, Entry{
				UserID:      r.StudentID,
				Amount:      fee,
				Type:        models.TxRefund,
				Description: "Lesson fee refund",
				RefID:       r.ID,
			})
			if err != nil {
				return decimal.Zero, err
			}
			refund = fee
		}
	}
	if err := s.transition(ctx, tx, r.ID, r.Status, models.StatusCanceled); err != nil {
		return decimal.Zero, err
	}
	return refund, nil
}

func (s *ReservationService) announceCancel(ctx context.Context, r models.Reservation, title, msg string, refund decimal.Decimal) {
	studentMsg := msg
	if refund.IsPositive() {
		studentMsg += fmt.Sprintf(" Refunded: %s.", money.Format(refund))
	}
	studentMsg += " Reservation ID: " + r.ID
	msg += " Reservation ID: " + r.ID

	s.effects.notify(ctx, r.StudentID, title, studentMsg)
	s.effects.notify(ctx, r.CoachID, title, msg)
	r.Status = models.StatusCanceled
	s.effects.publish(ctx, eventCanceled, withFee(reservationEvent(r), refund))
	if refund.IsPositive() {
		s.pushBalance(ctx, r.StudentID, models.TxRefund)
	}
}

// openRequest returns who holds the pending cancel request, treating a
// request older than RequestTTL as lapsed.
func (s *ReservationService) openRequest(r models.Reservation, now time.Time) string {
	if r.CancelRequestBy == models.CancelByNone || r.CancelRequestBy == "" {
		return models.CancelByNone
	}
	if s.rules.RequestTTL > 0 && r.CancelRequestedAt != nil && now.Sub(*r.CancelRequestedAt) > s.rules.RequestTTL {
		return models.CancelByNone
	}
	return r.CancelRequestBy
}

func (s *ReservationService) fee(ctx context.Context, tx store.Getter, r models.Reservation) (decimal.Decimal, error) {
	coach, err := s.coaches.GetCoachForUpdate(ctx, tx, r.CoachID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrCoachNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return money.LessonFee(coach.HourlyFee, r.StartTime, r.EndTime), nil
}

func (s *ReservationService) lock(ctx context.Context, tx store.Getter, id string) (models.Reservation, error) {
	return lockReservation(ctx, s.reservations, tx, id)
}

func (s *ReservationService) transition(ctx context.Context, tx store.Execer, id, from, to string) error {
	rows, err := s.reservations.TransitionStatus(ctx, tx, id, from, to)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidState
	}
	return nil
}

func (s *ReservationService) simpleTransition(ctx context.Context, id, from, to string, allowed func(models.Reservation) bool) (models.Reservation, error) {
	var r models.Reservation
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		r, err = s.lock(ctx, tx, id)
		if err != nil {
			return err
		}
		if !allowed(r) {
			return ErrPermissionDenied
		}
		if r.Status != from {
			return ErrInvalidState
		}
		return s.transition(ctx, tx, r.ID, from, to)
	})
	if err != nil {
		return models.Reservation{}, err
	}
	r.Status = to
	return r, nil
}

func (s *ReservationService) pushBalance(ctx context.Context, userID, reason string) {
	if s.effects.Hub == nil {
		return
	}
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return
	}
	s.effects.balance(userID, balance, reason)
}

func counterparty(by string) string {
	if by == models.CancelByStudent {
		return models.CancelByCoach
	}
	return models.CancelByStudent
}

func tableIDOf(r models.Reservation) string {
	if r.TableID == nil {
		return ""
	}
	return *r.TableID
}

func reservationEvent(r models.Reservation) map[string]any {
	return map[string]any{
		"reservation_id": r.ID,
		"campus_id":      r.CampusID,
		"coach_id":       r.CoachID,
		"student_id":     r.StudentID,
		"table_id":       tableIDOf(r),
		"start_time":     r.StartTime,
		"end_time":       r.EndTime,
		"status":         r.Status,
	}
}

func withFee(event map[string]any, amount decimal.Decimal) map[string]any {
	event["amount"] = money.Format(amount)
	return event
}
