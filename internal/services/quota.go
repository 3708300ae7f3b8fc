package services

import (
	"context"
	"time"

	"tabletennis/internal/models"
	"tabletennis/internal/store"
)

type CancelCounter interface {
	CountCanceledSince(ctx context.Context, q store.Getter, role, actorID string, since time.Time) (int, error)
}

type QuotaStatus struct {
	Used      int `json:"used"`
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

// QuotaTracker enforces the per-role monthly cap on finalized cancellations.
// Months are calendar months in loc.
type QuotaTracker struct {
	counter CancelCounter
	limit   int
	loc     *time.Location
	now     func() time.Time
}

func NewQuotaTracker(counter CancelCounter, limit int, loc *time.Location, now func() time.Time) *QuotaTracker {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &QuotaTracker{counter: counter, limit: limit, loc: loc, now: now}
}

// MonthStart returns midnight on the first day of t's month in loc.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

func (q *QuotaTracker) Limit() int {
	return q.limit
}

func (q *QuotaTracker) UsedThisMonth(ctx context.Context, role, actorID string) (int, error) {
	return q.used(ctx, nil, role, actorID)
}

func (q *QuotaTracker) used(ctx context.Context, tx store.Getter, role, actorID string) (int, error) {
	if role != models.CancelByStudent && role != models.CancelByCoach {
		return 0, ErrInvalidCancelParty
	}
	return q.counter.CountCanceledSince(ctx, tx, role, actorID, MonthStart(q.now(), q.loc))
}

func (q *QuotaTracker) Status(ctx context.Context, actor Actor, role, actorID string) (QuotaStatus, error) {
	if !actor.Owns(actorID) {
		return QuotaStatus{}, ErrPermissionDenied
	}
	used, err := q.UsedThisMonth(ctx, role, actorID)
	if err != nil {
		return QuotaStatus{}, err
	}
	return QuotaStatus{Used: used, Total: q.limit, Remaining: max(0, q.limit-used)}, nil
}

// check fails with ErrQuotaExceeded once the actor has used the full quota.
// The count runs on tx so concurrent finalizations serialize on it.
func (q *QuotaTracker) check(ctx context.Context, tx store.Getter, role, actorID string) error {
	used, err := q.used(ctx, tx, role, actorID)
	if err != nil {
		return err
	}
	if used >= q.limit {
		return ErrQuotaExceeded
	}
	return nil
}
