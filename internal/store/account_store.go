package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type AccountStore struct {
	db DB
}

// BalanceCheck compares the stored balance with the sum of the user's
// transactions. Difference is stored minus calculated.
type BalanceCheck struct {
	UserID            string          `db:"user_id" json:"user_id"`
	StoredBalance     decimal.Decimal `db:"stored_balance" json:"stored_balance"`
	CalculatedBalance decimal.Decimal `db:"calculated_balance" json:"calculated_balance"`
	Difference        decimal.Decimal `db:"difference" json:"difference"`
	TransactionCount  int             `db:"transaction_count" json:"transaction_count"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// Balance returns zero when the user has no account row yet.
func (s *AccountStore) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE user_id = $1`, userID)
	if isNoRows(err) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Credit adds amount to the user's balance, creating the account if needed.
func (s *AccountStore) Credit(ctx context.Context, tx Execer, userID string, amount decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, userID, amount)
	return err
}

// Debit subtracts amount only when the balance covers it. Zero rows affected
// means the account is missing or short.
func (s *AccountStore) Debit(ctx context.Context, tx Execer, userID string, amount decimal.Decimal) (int64, error) {
	return rowsAffected(tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2 AND balance >= $1
	`, amount, userID))
}

func (s *AccountStore) SelfCheck(ctx context.Context, userID string) (BalanceCheck, error) {
	var row BalanceCheck
	err := s.db.GetContext(ctx, &row, `
		SELECT $1::text AS user_id,
		       COALESCE(a.balance, 0) AS stored_balance,
		       COALESCE(t.total, 0) AS calculated_balance,
		       COALESCE(a.balance, 0) - COALESCE(t.total, 0) AS difference,
		       COALESCE(t.cnt, 0) AS transaction_count
		FROM (SELECT 1) one
		LEFT JOIN accounts a ON a.user_id = $1
		LEFT JOIN (
			SELECT SUM(amount) AS total, COUNT(*) AS cnt
			FROM transactions
			WHERE user_id = $1
		) t ON TRUE
	`, userID)
	if err != nil {
		return BalanceCheck{}, err
	}
	return row, nil
}
