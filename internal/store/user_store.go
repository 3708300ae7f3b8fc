package store

import (
	"context"

	"tabletennis/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

// Role returns "" without error when the user does not exist.
func (s *UserStore) Role(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, userID)
	if isNoRows(err) {
		return "", nil
	}
	return role, err
}

// GetCoachForUpdate reads the coach row inside tx so the hourly fee used for
// a charge cannot change under it.
func (s *UserStore) GetCoachForUpdate(ctx context.Context, tx Getter, coachID string) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT id, username, role, hourly_fee, created_at
		FROM users
		WHERE id = $1 AND role = 'coach'
		FOR SHARE
	`, coachID)
	return row, err
}
