package store

import (
	"context"

	"tabletennis/internal/models"
)

type PairingStore struct {
	db DB
}

func NewPairingStore(db DB) *PairingStore {
	return &PairingStore{db: db}
}

func (s *PairingStore) IsApproved(ctx context.Context, q Getter, coachID, studentID string) (bool, error) {
	var ok bool
	err := q.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM coach_students
			WHERE coach_id = $1 AND student_id = $2 AND status = 'approved'
		)
	`, coachID, studentID)
	return ok, err
}

func (s *PairingStore) Get(ctx context.Context, q Getter, coachID, studentID string) (models.Pairing, error) {
	var row models.Pairing
	err := q.GetContext(ctx, &row, `
		SELECT coach_id, student_id, status, created_at
		FROM coach_students
		WHERE coach_id = $1 AND student_id = $2
	`, coachID, studentID)
	return row, err
}

func (s *PairingStore) CountApprovedForStudent(ctx context.Context, q Getter, studentID string) (int, error) {
	var n int
	err := q.GetContext(ctx, &n, `
		SELECT COUNT(1) FROM coach_students WHERE student_id = $1 AND status = 'approved'
	`, studentID)
	return n, err
}

func (s *PairingStore) CountApprovedForCoach(ctx context.Context, q Getter, coachID string) (int, error) {
	var n int
	err := q.GetContext(ctx, &n, `
		SELECT COUNT(1) FROM coach_students WHERE coach_id = $1 AND status = 'approved'
	`, coachID)
	return n, err
}

// Request creates the pairing or resets a rejected one back to pending.
// An approved pairing is left untouched.
func (s *PairingStore) Request(ctx context.Context, tx Execer, coachID, studentID string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		INSERT INTO coach_students (coach_id, student_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (coach_id, student_id) DO UPDATE
		SET status = 'pending', created_at = NOW()
		WHERE coach_students.status <> 'approved'
	`, coachID, studentID))
}

// Decide resolves a pending pairing.
func (s *PairingStore) Decide(ctx context.Context, tx Execer, coachID, studentID, status string) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE coach_students
		SET status = $1
		WHERE coach_id = $2 AND student_id = $3 AND status = 'pending'
	`, status, coachID, studentID))
}

func (s *PairingStore) ListPending(ctx context.Context, coachID string) ([]models.Pairing, error) {
	rows := []models.Pairing{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT coach_id, student_id, status, created_at
		FROM coach_students
		WHERE coach_id = $1 AND status = 'pending'
		ORDER BY created_at
	`, coachID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
