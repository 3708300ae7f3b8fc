package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"tabletennis/internal/models"
)

func TestReservationStoreTransitionStatusIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	tx := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "WHERE id = $2 AND status = $3") {
				t.Fatalf("expected CAS update, got: %s", query)
			}
			if len(args) != 3 || args[0] != models.StatusConfirmed || args[1] != "res-1" || args[2] != models.StatusPending {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewReservationStore(stubDB{})
	rows, err := store.TransitionStatus(ctx, tx, "res-1", models.StatusPending, models.StatusConfirmed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
}

func TestReservationStoreMarkCancelRequested(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tx := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "cancel_request_by = $4") || !strings.Contains(query, "status IN ('pending', 'confirmed')") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != models.CancelByStudent || args[1] != at || args[2] != "res-1" || args[3] != models.CancelByNone {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewReservationStore(stubDB{})
	rows, err := store.MarkCancelRequested(ctx, tx, "res-1", models.CancelByNone, models.CancelByStudent, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows, got %d", rows)
	}
}

func TestReservationStoreCountCanceledSinceUsesRoleColumn(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		models.CancelByCoach:   "coach_id = $2",
		models.CancelByStudent: "student_id = $2",
	}
	for role, column := range cases {
		store := NewReservationStore(stubDB{
			getFn: func(_ context.Context, dest any, query string, args ...any) error {
				if !strings.Contains(query, column) || !strings.Contains(query, "status = 'canceled'") {
					t.Fatalf("unexpected query for %s: %s", role, query)
				}
				if args[0] != role || args[1] != "actor-1" || args[2] != since {
					t.Fatalf("unexpected args: %#v", args)
				}
				*dest.(*int) = 2
				return nil
			},
		})
		n, err := store.CountCanceledSince(ctx, nil, role, "actor-1", since)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2, got %d", n)
		}
	}
}

func TestReservationStoreCountCanceledSinceReadsThroughTx(t *testing.T) {
	store := NewReservationStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			t.Fatalf("count must run on the transaction")
			return nil
		},
	})
	tx := stubDB{
		getFn: func(_ context.Context, dest any, _ string, _ ...any) error {
			*dest.(*int) = 3
			return nil
		},
	}
	n, err := store.CountCanceledSince(context.Background(), tx, models.CancelByStudent, "stu-1", time.Now())
	if err != nil || n != 3 {
		t.Fatalf("unexpected result: %d %v", n, err)
	}
}

func TestReservationStoreGetForUpdateLocks(t *testing.T) {
	ctx := context.Background()
	tx := stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.Reservation) = models.Reservation{ID: "res-1", Status: models.StatusPending}
			return nil
		},
	}
	store := NewReservationStore(stubDB{})
	row, err := store.GetForUpdate(ctx, tx, "res-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Status != models.StatusPending {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestReservationStoreConfirmedStartingBetween(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2026, 5, 1, 9, 55, 0, 0, time.UTC)
	to := from.Add(10 * time.Minute)
	store := NewReservationStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "status = 'confirmed' AND start_time >= $1 AND start_time < $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*[]models.Reservation) = []models.Reservation{{ID: "res-9"}}
			return nil
		},
	})
	rows, err := store.ConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}
