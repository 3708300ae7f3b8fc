package handlers

import (
	"context"
	"time"

	"tabletennis/internal/license"
	"tabletennis/internal/models"
	"tabletennis/internal/services"
	"tabletennis/internal/store"

	"github.com/shopspring/decimal"
)

type ReservationService interface {
	Create(ctx context.Context, actor services.Actor, req services.CreateReservationRequest) (models.Reservation, error)
	Confirm(ctx context.Context, actor services.Actor, id string) (decimal.Decimal, error)
	Reject(ctx context.Context, actor services.Actor, id string) error
	Complete(ctx context.Context, actor services.Actor, id string) error
	RequestCancel(ctx context.Context, actor services.Actor, id, by string, confirm bool) (services.CancelResult, error)
	AdminCancel(ctx context.Context, actor services.Actor, id, reason string) (decimal.Decimal, error)
	Get(ctx context.Context, actor services.Actor, id string) (models.Reservation, error)
	List(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.Reservation, error)
}

type QuotaService interface {
	Status(ctx context.Context, actor services.Actor, role, actorID string) (services.QuotaStatus, error)
}

type CalendarService interface {
	AvailableTables(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error)
}

type LedgerService interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Recharge(ctx context.Context, actor services.Actor, userID string, amount decimal.Decimal, method string) error
	Transactions(ctx context.Context, actor services.Actor, userID, txType string, limit, offset int) ([]models.Transaction, error)
	SelfCheck(ctx context.Context, actor services.Actor, userID string) (store.BalanceCheck, error)
}

type TournamentService interface {
	Signup(ctx context.Context, actor services.Actor, userID, group string) (models.TournamentSignup, error)
	GenerateSchedule(ctx context.Context, actor services.Actor, group string) ([]models.Match, error)
	Info(ctx context.Context) (services.TournamentInfo, error)
	Participants(ctx context.Context, group string) ([]models.TournamentSignup, error)
	Schedule(ctx context.Context, group string) ([]models.Match, error)
}

type PairingService interface {
	Select(ctx context.Context, actor services.Actor, coachID, studentID string) error
	Decide(ctx context.Context, actor services.Actor, coachID, studentID string, approve bool) error
	Pending(ctx context.Context, actor services.Actor, coachID string) ([]models.Pairing, error)
}

type MessageService interface {
	List(ctx context.Context, actor services.Actor, unreadOnly bool, limit, offset int) ([]models.Message, error)
	MarkRead(ctx context.Context, actor services.Actor, id string) error
	MarkAllRead(ctx context.Context, actor services.Actor) (int64, error)
}

type ReviewService interface {
	Submit(ctx context.Context, actor services.Actor, req services.SubmitReviewRequest) (models.Review, error)
	List(ctx context.Context, actor services.Actor, f store.ReviewFilter, limit, offset int) ([]models.Review, error)
	Pending(ctx context.Context, actor services.Actor, role string) ([]models.Reservation, error)
}

type UserStore interface {
	Role(ctx context.Context, userID string) (string, error)
}

type LicenseWriter interface {
	Create(ctx context.Context, l models.License) error
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

// Deps are the collaborators a Handler serves. License and Licenses may be
// nil.
type Deps struct {
	Reservations ReservationService
	Quota        QuotaService
	Calendar     CalendarService
	Ledger       LedgerService
	Tournament   TournamentService
	Pairing      PairingService
	Messages     MessageService
	Reviews      ReviewService
	Users        UserStore
	Audit        AuditStore
	License      *license.Cache
	Licenses     LicenseWriter
}
