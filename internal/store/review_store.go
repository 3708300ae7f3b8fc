package store

import (
	"context"
	"fmt"
	"strings"

	"tabletennis/internal/models"
)

type ReviewStore struct {
	db DB
}

// ReviewFilter narrows List. Empty fields are ignored.
type ReviewFilter struct {
	ReservationID string
	CoachID       string
	StudentID     string
	ReviewerRole  string
}

func NewReviewStore(db DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Create(ctx context.Context, tx Execer, r models.Review) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reviews (id, reservation_id, reviewer_id, reviewer_role, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ReservationID, r.ReviewerID, r.ReviewerRole, r.Rating, r.Comment)
	return err
}

func (s *ReviewStore) Exists(ctx context.Context, q Getter, reservationID, role string) (bool, error) {
	var ok bool
	err := q.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM reviews WHERE reservation_id = $1 AND reviewer_role = $2
		)
	`, reservationID, role)
	return ok, err
}

func (s *ReviewStore) List(ctx context.Context, f ReviewFilter, limit, offset int) ([]models.Review, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("rv.reservation_id", f.ReservationID)
	add("r.coach_id", f.CoachID)
	add("r.student_id", f.StudentID)
	add("rv.reviewer_role", f.ReviewerRole)

	query := `SELECT rv.id, rv.reservation_id, rv.reviewer_id, rv.reviewer_role, rv.rating, rv.comment,
			rv.created_at, r.coach_id, r.student_id, r.start_time
		FROM reviews rv
		JOIN reservations r ON r.id = rv.reservation_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY rv.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows := []models.Review{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Pending lists the user's completed lessons that still lack a review from
// their side.
func (s *ReviewStore) Pending(ctx context.Context, role, userID string) ([]models.Reservation, error) {
	column := "student_id"
	if role == models.CancelByCoach {
		column = "coach_id"
	}
	rows := []models.Reservation{}
	err := s.db.SelectContext(ctx, &rows, `SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'completed'
		  AND `+column+` = $1
		  AND NOT EXISTS (
			SELECT 1 FROM reviews rv WHERE rv.reservation_id = reservations.id AND rv.reviewer_role = $2
		  )
		ORDER BY end_time DESC`, userID, role)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
