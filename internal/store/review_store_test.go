package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"tabletennis/internal/models"
)

func TestReviewStoreCreateUsesTx(t *testing.T) {
	ctx := context.Background()
	var called bool
	tx := stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			called = true
			if !strings.Contains(query, "INSERT INTO reviews") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[1] != "res-1" || args[3] != "student" || args[4] != 5 {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewReviewStore(stubDB{
		execFn: func(context.Context, string, ...any) (sql.Result, error) {
			t.Fatal("create must not bypass the transaction")
			return nil, nil
		},
	})
	err := store.Create(ctx, tx, models.Review{ID: "rv-1", ReservationID: "res-1", ReviewerID: "u1", ReviewerRole: "student", Rating: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected insert on tx")
	}
}

func TestReviewStoreListBuildsFilters(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		filter ReviewFilter
		want   []string
		args   []any
	}{
		{
			name: "no filter",
			want: []string{"LIMIT $1 OFFSET $2"},
			args: []any{20, 0},
		},
		{
			name:   "coach and role",
			filter: ReviewFilter{CoachID: "coach-1", ReviewerRole: "student"},
			want:   []string{"r.coach_id = $1", "rv.reviewer_role = $2", "LIMIT $3 OFFSET $4"},
			args:   []any{"coach-1", "student", 20, 0},
		},
		{
			name:   "reservation",
			filter: ReviewFilter{ReservationID: "res-1"},
			want:   []string{"rv.reservation_id = $1", "LIMIT $2 OFFSET $3"},
			args:   []any{"res-1", 20, 0},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db := stubDB{
				selectFn: func(_ context.Context, _ any, query string, args ...any) error {
					for _, w := range tc.want {
						if !strings.Contains(query, w) {
							t.Fatalf("query missing %q: %s", w, query)
						}
					}
					if len(args) != len(tc.args) {
						t.Fatalf("unexpected args: %#v", args)
					}
					for i := range args {
						if args[i] != tc.args[i] {
							t.Fatalf("arg %d: expected %v, got %v", i, tc.args[i], args[i])
						}
					}
					return nil
				},
			}
			if _, err := NewReviewStore(db).List(ctx, tc.filter, 20, 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestReviewStorePendingUsesRoleColumn(t *testing.T) {
	ctx := context.Background()
	db := stubDB{
		selectFn: func(_ context.Context, _ any, query string, args ...any) error {
			if !strings.Contains(query, "AND coach_id = $1") || !strings.Contains(query, "status = 'completed'") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != "coach-1" || args[1] != models.CancelByCoach {
				t.Fatalf("unexpected args: %#v", args)
			}
			return nil
		},
	}
	if _, err := NewReviewStore(db).Pending(ctx, models.CancelByCoach, "coach-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
