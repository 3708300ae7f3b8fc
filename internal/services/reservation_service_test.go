package services

import (
	"context"
	"testing"
	"time"

	"tabletennis/internal/models"
	"tabletennis/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	student = Actor{ID: "student-1", Role: models.RoleStudent}
	coach   = Actor{ID: "coach-1", Role: models.RoleCoach}
	admin   = Actor{ID: "admin-1", Role: models.RoleCampusAdmin}
)

type reservationHarness struct {
	svc    *ReservationService
	ledger *memLedger
	res    *memReservations
	cal    *stubCalendarStore
	notes  *recordingNotifier
	events *recordingEvents
	hub    *recordingHub
	now    time.Time
}

func newReservationHarness(approved bool, rs ...models.Reservation) *reservationHarness {
	h := &reservationHarness{
		ledger: newMemLedger(),
		res:    newMemReservations(rs...),
		cal:    &stubCalendarStore{freeTables: []models.Table{{ID: "table-1", CampusID: "campus-1"}}},
		notes:  &recordingNotifier{},
		events: &recordingEvents{},
		hub:    &recordingHub{},
		now:    testNow,
	}
	clock := func() time.Time { return h.now }
	effects := Effects{Notifier: h.notes, Events: h.events, Hub: h.hub, Audit: &recordingAudit{}}
	ledger := NewLedgerService(fakeTxRunner{}, h.ledger, h.ledger, effects)
	quota := NewQuotaTracker(h.res, 3, time.UTC, clock)
	h.svc = NewReservationService(
		fakeTxRunner{},
		h.res,
		NewCalendarService(h.cal),
		stubPairings{approved: approved},
		stubCoaches{hourly: decimal.NewFromInt(150)},
		ledger,
		quota,
		CancelRules{LeadTime: 24 * time.Hour, RequestTTL: 72 * time.Hour},
		effects,
		clock,
	)
	return h
}

// lesson returns a 90 minute lesson starting in two days.
func lesson(id, status string) models.Reservation {
	start := testNow.Add(48 * time.Hour)
	table := "table-1"
	return models.Reservation{
		ID:              id,
		CampusID:        "campus-1",
		CoachID:         coach.ID,
		StudentID:       student.ID,
		TableID:         &table,
		StartTime:       start,
		EndTime:         start.Add(90 * time.Minute),
		Status:          status,
		CancelRequestBy: models.CancelByNone,
	}
}

func newRequest() CreateReservationRequest {
	start := testNow.Add(48 * time.Hour)
	return CreateReservationRequest{
		CampusID:  "campus-1",
		CoachID:   coach.ID,
		StudentID: student.ID,
		Start:     start,
		End:       start.Add(90 * time.Minute),
	}
}

func TestCreateReservationAssignsTable(t *testing.T) {
	h := newReservationHarness(true)

	r, err := h.svc.Create(context.Background(), student, newRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	require.NotNil(t, r.TableID)
	assert.Equal(t, "table-1", *r.TableID)
	assert.Equal(t, models.StatusPending, h.res.get(r.ID).Status)
	require.Len(t, h.notes.to(coach.ID), 1)
	assert.Contains(t, h.notes.to(coach.ID)[0].content, r.ID)
	assert.Equal(t, []string{eventCreated}, h.events.keys)
}

func TestCreateReservationRejections(t *testing.T) {
	cases := []struct {
		name  string
		setup func(h *reservationHarness, req *CreateReservationRequest)
		actor Actor
		want  error
	}{
		{
			name:  "other student",
			actor: Actor{ID: "student-2", Role: models.RoleStudent},
			want:  ErrPermissionDenied,
		},
		{
			name: "end before start",
			setup: func(_ *reservationHarness, req *CreateReservationRequest) {
				req.End = req.Start
			},
			actor: student,
			want:  ErrInvalidTimeRange,
		},
		{
			name: "party busy",
			setup: func(h *reservationHarness, _ *CreateReservationRequest) {
				h.cal.hasPartyConflictFn = func(string, string, time.Time, time.Time) (bool, error) { return true, nil }
			},
			actor: student,
			want:  ErrTimeConflict,
		},
		{
			name: "no free table",
			setup: func(h *reservationHarness, _ *CreateReservationRequest) {
				h.cal.freeTables = nil
			},
			actor: student,
			want:  ErrNoTableAvailable,
		},
		{
			name: "table in another campus",
			setup: func(h *reservationHarness, req *CreateReservationRequest) {
				h.cal.campusTables = map[string]string{"table-9": "campus-2"}
				req.TableID = "table-9"
			},
			actor: student,
			want:  ErrTableNotInCampus,
		},
		{
			name: "chosen table busy",
			setup: func(h *reservationHarness, req *CreateReservationRequest) {
				h.cal.campusTables = map[string]string{"table-2": "campus-1"}
				h.cal.hasConflictFn = func(kind store.Resource, id string, _, _ time.Time) (bool, error) {
					return kind == store.ResourceTable && id == "table-2", nil
				}
				req.TableID = "table-2"
			},
			actor: student,
			want:  ErrTimeConflict,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newReservationHarness(true)
			req := newRequest()
			if tc.setup != nil {
				tc.setup(h, &req)
			}
			_, err := h.svc.Create(context.Background(), tc.actor, req)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, h.res.rows)
		})
	}
}

func TestCreateReservationRequiresApprovedPairing(t *testing.T) {
	h := newReservationHarness(false)
	_, err := h.svc.Create(context.Background(), student, newRequest())
	assert.ErrorIs(t, err, ErrPairingRequired)
}

func TestConfirmChargesLessonFee(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))
	h.ledger.balances[student.ID] = decimal.NewFromInt(300)

	fee, err := h.svc.Confirm(context.Background(), coach, "r1")
	require.NoError(t, err)
	assert.Equal(t, "225.00", fee.StringFixed(2))
	assert.Equal(t, models.StatusConfirmed, h.res.get("r1").Status)
	assert.Equal(t, "75.00", h.ledger.balances[student.ID].StringFixed(2))

	charges := h.ledger.typed(student.ID, models.TxReservationFee)
	require.Len(t, charges, 1)
	assert.Equal(t, "-225.00", charges[0].Amount.StringFixed(2))
	require.NotNil(t, charges[0].RefID)
	assert.Equal(t, "r1", *charges[0].RefID)

	require.Len(t, h.hub.updates, 1)
	assert.Equal(t, "75.00", h.hub.updates[0].Balance)
}

func TestConfirmInsufficientFundsKeepsPending(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))
	h.ledger.balances[student.ID] = decimal.NewFromInt(100)

	_, err := h.svc.Confirm(context.Background(), coach, "r1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, models.StatusPending, h.res.get("r1").Status)
	assert.Equal(t, "100.00", h.ledger.balances[student.ID].StringFixed(2))
	assert.Empty(t, h.ledger.rows)
}

func TestConfirmRequiresCoach(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))
	_, err := h.svc.Confirm(context.Background(), student, "r1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = h.svc.Confirm(context.Background(), coach, "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestRejectOnlyFromPending(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending), lesson("r2", models.StatusConfirmed))

	require.NoError(t, h.svc.Reject(context.Background(), coach, "r1"))
	assert.Equal(t, models.StatusRejected, h.res.get("r1").Status)

	err := h.svc.Reject(context.Background(), coach, "r2")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.StatusConfirmed, h.res.get("r2").Status)
}

func TestCompleteConfirmedLesson(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))
	require.NoError(t, h.svc.Complete(context.Background(), coach, "r1"))
	assert.Equal(t, models.StatusCompleted, h.res.get("r1").Status)

	err := h.svc.Complete(context.Background(), coach, "r1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelHandshakeRefundsConfirmedLesson(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))
	h.ledger.balances[student.ID] = decimal.NewFromInt(300)
	_, err := h.svc.Confirm(context.Background(), coach, "r1")
	require.NoError(t, err)

	res, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	require.NoError(t, err)
	assert.True(t, res.PendingConfirm)
	assert.False(t, res.Canceled)
	assert.Equal(t, models.StatusConfirmed, h.res.get("r1").Status)
	assert.Equal(t, models.CancelByStudent, h.res.get("r1").CancelRequestBy)

	asks := h.notes.to(coach.ID)
	require.NotEmpty(t, asks)
	assert.Equal(t, titleCancelAsk, asks[len(asks)-1].title)

	res, err = h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByCoach, true)
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.Equal(t, "225.00", res.Refund.StringFixed(2))
	assert.Equal(t, models.StatusCanceled, h.res.get("r1").Status)
	assert.Equal(t, "300.00", h.ledger.balances[student.ID].StringFixed(2))

	refunds := h.ledger.typed(student.ID, models.TxRefund)
	require.Len(t, refunds, 1)
	assert.Equal(t, "225.00", refunds[0].Amount.StringFixed(2))
}

func TestCancelPendingLessonHasNoRefund(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))

	_, err := h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByCoach, false)
	require.NoError(t, err)
	res, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, true)
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.True(t, res.Refund.IsZero())
	assert.Empty(t, h.ledger.rows)
}

func TestCancelHandshakeErrors(t *testing.T) {
	t.Run("same party twice", func(t *testing.T) {
		h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))
		_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
		require.NoError(t, err)
		_, err = h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, true)
		assert.ErrorIs(t, err, ErrCancelAlreadyPending)
	})
	t.Run("counterparty without confirm", func(t *testing.T) {
		h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))
		_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
		require.NoError(t, err)
		_, err = h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByCoach, false)
		assert.ErrorIs(t, err, ErrConfirmRequired)
		assert.Equal(t, models.StatusConfirmed, h.res.get("r1").Status)
	})
	t.Run("acting for the other side", func(t *testing.T) {
		h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))
		_, err := h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByStudent, false)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
	t.Run("bad party", func(t *testing.T) {
		h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))
		_, err := h.svc.RequestCancel(context.Background(), student, "r1", "parent", false)
		assert.ErrorIs(t, err, ErrInvalidCancelParty)
	})
	t.Run("already completed", func(t *testing.T) {
		h := newReservationHarness(true, lesson("r1", models.StatusCompleted))
		_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestCancelTooCloseToStart(t *testing.T) {
	for _, lead := range []time.Duration{23 * time.Hour, 24 * time.Hour} {
		r := lesson("r1", models.StatusConfirmed)
		r.StartTime = testNow.Add(lead)
		r.EndTime = r.StartTime.Add(time.Hour)
		h := newReservationHarness(true, r)

		_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
		assert.ErrorIs(t, err, ErrTooLateToCancel, "lead %s", lead)
	}
}

func TestCancelRequestLapses(t *testing.T) {
	r := lesson("r1", models.StatusConfirmed)
	r.StartTime = testNow.Add(7 * 24 * time.Hour)
	r.EndTime = r.StartTime.Add(time.Hour)
	h := newReservationHarness(true, r)

	_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	require.NoError(t, err)

	h.now = testNow.Add(73 * time.Hour)
	res, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	require.NoError(t, err)
	assert.True(t, res.PendingConfirm)
	require.NotNil(t, h.res.get("r1").CancelRequestedAt)
	assert.Equal(t, h.now, *h.res.get("r1").CancelRequestedAt)

	h.now = testNow.Add(74 * time.Hour)
	_, err = h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByCoach, false)
	assert.ErrorIs(t, err, ErrConfirmRequired)
}

func TestCancelQuotaExhausted(t *testing.T) {
	var prior []models.Reservation
	for _, id := range []string{"p1", "p2", "p3"} {
		r := lesson(id, models.StatusCanceled)
		r.StartTime = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
		r.EndTime = r.StartTime.Add(time.Hour)
		r.CancelRequestBy = models.CancelByStudent
		prior = append(prior, r)
	}
	h := newReservationHarness(true, append(prior, lesson("r1", models.StatusConfirmed))...)

	_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// the coach side has its own quota
	_, err = h.svc.RequestCancel(context.Background(), coach, "r1", models.CancelByCoach, false)
	assert.NoError(t, err)
}

func TestCancelQuotaRecheckedForInitiatorOnFinalize(t *testing.T) {
	var rows []models.Reservation
	for _, id := range []string{"p1", "p2"} {
		r := lesson(id, models.StatusCanceled)
		r.StartTime = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
		r.EndTime = r.StartTime.Add(time.Hour)
		r.CancelRequestBy = models.CancelByStudent
		rows = append(rows, r)
	}
	open := []string{"r1", "r2", "r3"}
	for i, id := range open {
		r := lesson(id, models.StatusConfirmed)
		r.StartTime = r.StartTime.Add(time.Duration(i) * 2 * time.Hour)
		r.EndTime = r.StartTime.Add(90 * time.Minute)
		rows = append(rows, r)
	}
	h := newReservationHarness(true, rows...)
	ctx := context.Background()

	// Open requests do not count yet, so all three are accepted.
	for _, id := range open {
		res, err := h.svc.RequestCancel(ctx, student, id, models.CancelByStudent, false)
		require.NoError(t, err, id)
		assert.True(t, res.PendingConfirm)
	}

	_, err := h.svc.RequestCancel(ctx, coach, "r1", models.CancelByCoach, true)
	require.NoError(t, err)
	for _, id := range []string{"r2", "r3"} {
		_, err := h.svc.RequestCancel(ctx, coach, id, models.CancelByCoach, true)
		assert.ErrorIs(t, err, ErrQuotaExceeded, id)
		assert.Equal(t, models.StatusConfirmed, h.res.get(id).Status)
		assert.Equal(t, models.CancelByStudent, h.res.get(id).CancelRequestBy)
	}

	used, err := h.res.CountCanceledSince(ctx, nil, models.CancelByStudent, student.ID, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, used)
}

func TestCancelQuotaIgnoresPreviousMonth(t *testing.T) {
	var prior []models.Reservation
	for _, id := range []string{"p1", "p2", "p3"} {
		r := lesson(id, models.StatusCanceled)
		r.StartTime = time.Date(2026, 4, 28, 10, 0, 0, 0, time.UTC)
		r.EndTime = r.StartTime.Add(time.Hour)
		r.CancelRequestBy = models.CancelByStudent
		prior = append(prior, r)
	}
	h := newReservationHarness(true, append(prior, lesson("r1", models.StatusConfirmed))...)

	_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	assert.NoError(t, err)
}

func TestAdminCancelRefunds(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusConfirmed))

	_, err := h.svc.AdminCancel(context.Background(), coach, "r1", "")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	refund, err := h.svc.AdminCancel(context.Background(), admin, "r1", "venue closed")
	require.NoError(t, err)
	assert.Equal(t, "225.00", refund.StringFixed(2))
	assert.Equal(t, models.StatusCanceled, h.res.get("r1").Status)
	assert.Equal(t, "225.00", h.ledger.balances[student.ID].StringFixed(2))
	msgs := h.notes.to(student.ID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].content, "venue closed")
}

func TestAdminCancelDropsOpenRequest(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))

	_, err := h.svc.RequestCancel(context.Background(), student, "r1", models.CancelByStudent, false)
	require.NoError(t, err)
	_, err = h.svc.AdminCancel(context.Background(), admin, "r1", "")
	require.NoError(t, err)

	got := h.res.get("r1")
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Equal(t, models.CancelByNone, got.CancelRequestBy)
}

func TestGetReservationVisibility(t *testing.T) {
	h := newReservationHarness(true, lesson("r1", models.StatusPending))

	_, err := h.svc.Get(context.Background(), student, "r1")
	assert.NoError(t, err)
	_, err = h.svc.Get(context.Background(), Actor{ID: "stranger", Role: models.RoleStudent}, "r1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = h.svc.Get(context.Background(), admin, "nope")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}
