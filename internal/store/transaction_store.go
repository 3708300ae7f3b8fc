package store

import (
	"context"

	"tabletennis/internal/models"

	"github.com/shopspring/decimal"
)

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	Type        string
	Description string
	RefID       *string
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, description, ref_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, input.ID, input.UserID, input.Amount, input.Type, input.Description, input.RefID)
	return err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, ref_id, created_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	if txType != "" {
		query += " AND type = $2 ORDER BY created_at DESC, id LIMIT $3 OFFSET $4"
		args = append(args, txType, limit, offset)
	} else {
		query += " ORDER BY created_at DESC, id LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}
	rows := []models.Transaction{}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
