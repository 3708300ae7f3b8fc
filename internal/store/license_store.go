package store

import (
	"context"

	"tabletennis/internal/models"
)

type LicenseStore struct {
	db DB
}

func NewLicenseStore(db DB) *LicenseStore {
	return &LicenseStore{db: db}
}

// Latest returns the most recently issued license, or sql.ErrNoRows.
func (s *LicenseStore) Latest(ctx context.Context) (models.License, error) {
	var row models.License
	err := s.db.GetContext(ctx, &row, `
		SELECT id, purchaser_org, start_date, end_date
		FROM licenses
		ORDER BY end_date DESC, created_at DESC
		LIMIT 1
	`)
	return row, err
}

func (s *LicenseStore) Create(ctx context.Context, l models.License) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (id, purchaser_org, start_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, l.ID, l.PurchaserOrg, l.StartDate, l.EndDate)
	return err
}
