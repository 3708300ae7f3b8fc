package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleStudent     = "student"
	RoleCoach       = "coach"
	RoleCampusAdmin = "campus_admin"
	RoleSuperAdmin  = "super_admin"
)

func IsAdminRole(role string) bool {
	return role == RoleCampusAdmin || role == RoleSuperAdmin
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

const (
	CancelByNone    = "none"
	CancelByStudent = "student"
	CancelByCoach   = "coach"
)

const (
	PairingPending  = "pending"
	PairingApproved = "approved"
	PairingRejected = "rejected"
)

const (
	TxRecharge       = "recharge"
	TxReservationFee = "reservation_fee"
	TxRefund         = "refund"
	TxSignupFee      = "signup_fee"
	TxTournamentFee  = "tournament_fee"
)

type User struct {
	ID        string          `db:"id" json:"id"`
	Username  string          `db:"username" json:"username"`
	Role      string          `db:"role" json:"role"`
	HourlyFee decimal.Decimal `db:"hourly_fee" json:"hourly_fee"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type Account struct {
	UserID    string          `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Type        string          `db:"type" json:"type"`
	Description string          `db:"description" json:"description"`
	RefID       *string         `db:"ref_id" json:"ref_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Table struct {
	ID       string `db:"id" json:"id"`
	CampusID string `db:"campus_id" json:"campus_id"`
	Name     string `db:"name" json:"name"`
}

type Reservation struct {
	ID                string     `db:"id" json:"id"`
	CampusID          string     `db:"campus_id" json:"campus_id"`
	CoachID           string     `db:"coach_id" json:"coach_id"`
	StudentID         string     `db:"student_id" json:"student_id"`
	TableID           *string    `db:"table_id" json:"table_id,omitempty"`
	StartTime         time.Time  `db:"start_time" json:"start_time"`
	EndTime           time.Time  `db:"end_time" json:"end_time"`
	Status            string     `db:"status" json:"status"`
	CancelRequestBy   string     `db:"cancel_request_by" json:"cancel_request_by"`
	CancelRequestedAt *time.Time `db:"cancel_requested_at" json:"cancel_requested_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// PartyID returns the id of the student or coach side named by by.
func (r Reservation) PartyID(by string) string {
	if by == CancelByCoach {
		return r.CoachID
	}
	return r.StudentID
}

type Review struct {
	ID            string    `db:"id" json:"id"`
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	ReviewerID    string    `db:"reviewer_id" json:"reviewer_id"`
	ReviewerRole  string    `db:"reviewer_role" json:"reviewer_role"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       string    `db:"comment" json:"comment"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	CoachID       string    `db:"coach_id" json:"coach_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
}

type Pairing struct {
	CoachID   string    `db:"coach_id" json:"coach_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TournamentSignup struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Cycle      string    `db:"cycle" json:"cycle"`
	GroupLevel string    `db:"group_level" json:"group_level"`
	Paid       bool      `db:"paid" json:"paid"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Match struct {
	ID         string     `db:"id" json:"id"`
	Cycle      string     `db:"cycle" json:"cycle"`
	GroupLevel string     `db:"group_level" json:"group_level"`
	RoundNo    int        `db:"round_no" json:"round_no"`
	Player1ID  string     `db:"player1_id" json:"player1_id"`
	Player2ID  string     `db:"player2_id" json:"player2_id"`
	TableID    *string    `db:"table_id" json:"table_id,omitempty"`
	MatchTime  *time.Time `db:"match_time" json:"match_time,omitempty"`
}

type Message struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	IsRead      bool      `db:"is_read" json:"is_read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Data       string    `db:"data" json:"data"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type License struct {
	ID           string    `db:"id" json:"id"`
	PurchaserOrg string    `db:"purchaser_org" json:"purchaser_org"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
}
