package store

import (
	"context"
	"time"

	"tabletennis/internal/models"
)

type ReservationStore struct {
	db DB
}

const reservationColumns = `id, campus_id, coach_id, student_id, table_id, start_time, end_time,
	status, cancel_request_by, cancel_requested_at, created_at`

func NewReservationStore(db DB) *ReservationStore {
	return &ReservationStore{db: db}
}

func (s *ReservationStore) Create(ctx context.Context, tx Execer, r models.Reservation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (id, campus_id, coach_id, student_id, table_id, start_time, end_time, status, cancel_request_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.CampusID, r.CoachID, r.StudentID, r.TableID, r.StartTime, r.EndTime, r.Status, r.CancelRequestBy)
	return err
}

func (s *ReservationStore) GetByID(ctx context.Context, id string) (models.Reservation, error) {
	var row models.Reservation
	err := s.db.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	return row, err
}

func (s *ReservationStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.Reservation, error) {
	var row models.Reservation
	err := tx.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
	return row, err
}

// TransitionStatus moves a reservation from one status to another and reports
// how many rows changed. Zero means the status was no longer from.
func (s *ReservationStore) TransitionStatus(ctx context.Context, tx Execer, id, from, to string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = $3
	`, to, id, from))
}

// MarkCancelRequested stamps the requesting party, provided the reservation
// is still open and its cancel_request_by still equals expected.
func (s *ReservationStore) MarkCancelRequested(ctx context.Context, tx Execer, id, expected, by string, at time.Time) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE reservations
		SET cancel_request_by = $1, cancel_requested_at = $2
		WHERE id = $3 AND cancel_request_by = $4 AND status IN ('pending', 'confirmed')
	`, by, at, id, expected))
}

// CountCanceledSince counts finalized cancellations initiated by role for the
// actor on reservations starting at or after since. A nil q reads outside any
// transaction.
func (s *ReservationStore) CountCanceledSince(ctx context.Context, q Getter, role, actorID string, since time.Time) (int, error) {
	if q == nil {
		q = s.db
	}
	column := "student_id"
	if role == models.CancelByCoach {
		column = "coach_id"
	}
	var count int
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM reservations
		WHERE status = 'canceled'
		  AND cancel_request_by = $1
		  AND `+column+` = $2
		  AND start_time >= $3
	`, role, actorID, since)
	return count, err
}

func (s *ReservationStore) ListForUser(ctx context.Context, userID, status string, limit, offset int) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE (student_id = $1 OR coach_id = $1)`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2 ORDER BY start_time DESC LIMIT $3 OFFSET $4`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY start_time DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}
	rows := []models.Reservation{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ConfirmedStartingBetween lists confirmed lessons with start_time in [from, to).
func (s *ReservationStore) ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	rows := []models.Reservation{}
	err := s.db.SelectContext(ctx, &rows, `SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'confirmed' AND start_time >= $1 AND start_time < $2
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
