package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"tabletennis/internal/models"
	"tabletennis/internal/store"
	"tabletennis/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// memLedger keeps balances and transaction rows in memory. It implements
// both AccountStore and TransactionStore.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	rows     []store.TransactionInput
}

func newMemLedger() *memLedger {
	return &memLedger{balances: map[string]decimal.Decimal{}}
}

func (m *memLedger) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *memLedger) Credit(_ context.Context, _ store.Execer, userID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = m.balances[userID].Add(amount)
	return nil
}

func (m *memLedger) Debit(_ context.Context, _ store.Execer, userID string, amount decimal.Decimal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID].LessThan(amount) {
		return 0, nil
	}
	m.balances[userID] = m.balances[userID].Sub(amount)
	return 1, nil
}

func (m *memLedger) SelfCheck(_ context.Context, userID string) (store.BalanceCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	count := 0
	for _, r := range m.rows {
		if r.UserID == userID {
			total = total.Add(r.Amount)
			count++
		}
	}
	stored := m.balances[userID]
	return store.BalanceCheck{
		UserID:            userID,
		StoredBalance:     stored,
		CalculatedBalance: total,
		Difference:        stored.Sub(total),
		TransactionCount:  count,
	}, nil
}

func (m *memLedger) Create(_ context.Context, _ store.Execer, input store.TransactionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, input)
	return nil
}

func (m *memLedger) ListByUser(_ context.Context, userID, txType string, _, _ int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, r := range m.rows {
		if r.UserID != userID || (txType != "" && r.Type != txType) {
			continue
		}
		out = append(out, models.Transaction{ID: r.ID, UserID: r.UserID, Amount: r.Amount, Type: r.Type, Description: r.Description, RefID: r.RefID})
	}
	return out, nil
}

func (m *memLedger) typed(userID, txType string) []store.TransactionInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.TransactionInput
	for _, r := range m.rows {
		if r.UserID == userID && r.Type == txType {
			out = append(out, r)
		}
	}
	return out
}

// memReservations stores reservations by id and counts finalized
// cancellations the way the SQL store does.
type memReservations struct {
	mu   sync.Mutex
	rows map[string]models.Reservation
}

func newMemReservations(rs ...models.Reservation) *memReservations {
	m := &memReservations{rows: map[string]models.Reservation{}}
	for _, r := range rs {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memReservations) Create(_ context.Context, _ store.Execer, r models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = r
	return nil
}

func (m *memReservations) GetByID(_ context.Context, id string) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return models.Reservation{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memReservations) GetForUpdate(ctx context.Context, _ store.Getter, id string) (models.Reservation, error) {
	return m.GetByID(ctx, id)
}

func (m *memReservations) TransitionStatus(_ context.Context, _ store.Execer, id, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return 0, nil
	}
	r.Status = to
	m.rows[id] = r
	return 1, nil
}

func (m *memReservations) MarkCancelRequested(_ context.Context, _ store.Execer, id, expected, by string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.CancelRequestBy != expected {
		return 0, nil
	}
	r.CancelRequestBy = by
	r.CancelRequestedAt = &at
	m.rows[id] = r
	return 1, nil
}

func (m *memReservations) ListForUser(_ context.Context, userID, status string, _, _ int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.rows {
		if (r.StudentID == userID || r.CoachID == userID) && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (m *memReservations) CountCanceledSince(_ context.Context, _ store.Getter, role, actorID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.Status == models.StatusCanceled && r.CancelRequestBy == role && r.PartyID(role) == actorID && !r.StartTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memReservations) get(id string) models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type stubCalendarStore struct {
	hasConflictFn      func(kind store.Resource, resourceID string, start, end time.Time) (bool, error)
	hasPartyConflictFn func(coachID, studentID string, start, end time.Time) (bool, error)
	freeTables         []models.Table
	campusTables       map[string]string
	assigned           []time.Time
}

func (s *stubCalendarStore) HasConflict(_ context.Context, _ store.Getter, kind store.Resource, resourceID string, start, end time.Time) (bool, error) {
	if s.hasConflictFn == nil {
		return false, nil
	}
	return s.hasConflictFn(kind, resourceID, start, end)
}

func (s *stubCalendarStore) HasPartyConflict(_ context.Context, _ store.Getter, coachID, studentID string, start, end time.Time) (bool, error) {
	if s.hasPartyConflictFn == nil {
		return false, nil
	}
	return s.hasPartyConflictFn(coachID, studentID, start, end)
}

func (s *stubCalendarStore) FreeTables(_ context.Context, _ store.Selecter, _ string, start, _ time.Time, limit int) ([]models.Table, error) {
	s.assigned = append(s.assigned, start)
	if limit > 0 && len(s.freeTables) > limit {
		return s.freeTables[:limit], nil
	}
	return s.freeTables, nil
}

func (s *stubCalendarStore) TableInCampus(_ context.Context, _ store.Getter, tableID, campusID string) (bool, error) {
	return s.campusTables[tableID] == campusID, nil
}

func (s *stubCalendarStore) Conflicts(ctx context.Context, kind store.Resource, resourceID string, start, end time.Time) (bool, error) {
	return s.HasConflict(ctx, nil, kind, resourceID, start, end)
}

func (s *stubCalendarStore) Available(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error) {
	return s.FreeTables(ctx, nil, campusID, start, end, 0)
}

type stubPairings struct {
	approved bool
}

func (s stubPairings) IsApproved(context.Context, store.Getter, string, string) (bool, error) {
	return s.approved, nil
}

type stubCoaches struct {
	hourly decimal.Decimal
}

func (s stubCoaches) GetCoachForUpdate(_ context.Context, _ store.Getter, coachID string) (models.User, error) {
	if coachID == "" {
		return models.User{}, sql.ErrNoRows
	}
	return models.User{ID: coachID, Role: models.RoleCoach, HourlyFee: s.hourly}, nil
}

type sentMessage struct {
	recipient, title, content string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingNotifier) Notify(_ context.Context, recipientID, title, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{recipientID, title, content})
	return nil
}

func (r *recordingNotifier) to(recipient string) []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentMessage
	for _, m := range r.sent {
		if m.recipient == recipient {
			out = append(out, m)
		}
	}
	return out
}

type recordingEvents struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingEvents) Publish(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) Log(_ context.Context, _, action, _, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return nil
}

type recordingHub struct {
	updates []websocket.BalanceUpdate
}

func (h *recordingHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	h.updates = append(h.updates, update)
}
