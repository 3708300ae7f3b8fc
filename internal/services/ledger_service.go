package services

import (
	"context"

	"tabletennis/internal/db"
	"tabletennis/internal/models"
	"tabletennis/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type AccountStore interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Credit(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) error
	Debit(ctx context.Context, tx store.Execer, userID string, amount decimal.Decimal) (int64, error)
	SelfCheck(ctx context.Context, userID string) (store.BalanceCheck, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
}

// Entry describes one balance movement. Amount is always positive; the sign
// stored on the transaction row follows from Credit or Debit.
type Entry struct {
	UserID      string
	Amount      decimal.Decimal
	Type        string
	Description string
	RefID       string
}

// LedgerService owns balances and the append-only transaction log. Every
// balance change writes exactly one transaction row in the same database
// transaction, so balance == sum(transactions.amount) per user.
type LedgerService struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	transactions TransactionStore
	effects      Effects
}

func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, transactions TransactionStore, effects Effects) *LedgerService {
	return &LedgerService{
		txRunner:     txRunner,
		accounts:     accounts,
		transactions: transactions,
		effects:      effects,
	}
}

func (s *LedgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.accounts.Balance(ctx, userID)
}

func (s *LedgerService) Credit(ctx context.Context, e Entry) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.CreditTx(ctx, tx, e)
	})
	if err != nil {
		return err
	}
	s.pushBalance(ctx, e.UserID, e.Type)
	return nil
}

func (s *LedgerService) Debit(ctx context.Context, e Entry) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.DebitTx(ctx, tx, e)
	})
	if err != nil {
		return err
	}
	s.pushBalance(ctx, e.UserID, e.Type)
	return nil
}

// CreditTx upserts the account and appends a positive transaction inside tx.
func (s *LedgerService) CreditTx(ctx context.Context, tx store.Execer, e Entry) error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := s.accounts.Credit(ctx, tx, e.UserID, e.Amount); err != nil {
		return err
	}
	return s.record(ctx, tx, e, e.Amount)
}

// DebitTx decrements the balance only if it covers the amount; the guard
// lives in the UPDATE so concurrent debits cannot both pass.
func (s *LedgerService) DebitTx(ctx context.Context, tx store.Execer, e Entry) error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	rows, err := s.accounts.Debit(ctx, tx, e.UserID, e.Amount)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}
	return s.record(ctx, tx, e, e.Amount.Neg())
}

func (s *LedgerService) record(ctx context.Context, tx store.Execer, e Entry, signed decimal.Decimal) error {
	var ref *string
	if e.RefID != "" {
		ref = &e.RefID
	}
	return s.transactions.Create(ctx, tx, store.TransactionInput{
		ID:          uuid.NewString(),
		UserID:      e.UserID,
		Amount:      signed,
		Type:        e.Type,
		Description: e.Description,
		RefID:       ref,
	})
}

var rechargeDescriptions = map[string]string{
	"wechat":  "WeChat Pay recharge",
	"alipay":  "Alipay recharge",
	"offline": "Offline payment recharge",
}

// Recharge credits a user's account. The payment itself happens elsewhere;
// method only labels the transaction.
func (s *LedgerService) Recharge(ctx context.Context, actor Actor, userID string, amount decimal.Decimal, method string) error {
	if !actor.Owns(userID) {
		return ErrPermissionDenied
	}
	desc, ok := rechargeDescriptions[method]
	if !ok {
		return ErrInvalidMethod
	}
	if err := s.Credit(ctx, Entry{UserID: userID, Amount: amount, Type: models.TxRecharge, Description: desc}); err != nil {
		return err
	}
	s.effects.audit(ctx, actor.ID, "recharge", "account", userID, map[string]any{
		"amount": amount.StringFixed(2),
		"method": method,
	})
	return nil
}

func (s *LedgerService) Transactions(ctx context.Context, actor Actor, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	if !actor.Owns(userID) {
		return nil, ErrPermissionDenied
	}
	return s.transactions.ListByUser(ctx, userID, txType, limit, offset)
}

func (s *LedgerService) SelfCheck(ctx context.Context, actor Actor, userID string) (store.BalanceCheck, error) {
	if !actor.Owns(userID) {
		return store.BalanceCheck{}, ErrPermissionDenied
	}
	return s.accounts.SelfCheck(ctx, userID)
}

func (s *LedgerService) pushBalance(ctx context.Context, userID, reason string) {
	if s.effects.Hub == nil {
		return
	}
	balance, err := s.accounts.Balance(ctx, userID)
	if err != nil {
		return
	}
	s.effects.balance(userID, balance, reason)
}
