package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"tabletennis/internal/auth"
	"tabletennis/internal/config"
	"tabletennis/internal/models"
	"tabletennis/internal/services"
	"tabletennis/internal/store"
	"tabletennis/internal/websocket"

	"github.com/shopspring/decimal"
)

type stubReservations struct {
	createFn        func(ctx context.Context, actor services.Actor, req services.CreateReservationRequest) (models.Reservation, error)
	confirmFn       func(ctx context.Context, actor services.Actor, id string) (decimal.Decimal, error)
	rejectFn        func(ctx context.Context, actor services.Actor, id string) error
	completeFn      func(ctx context.Context, actor services.Actor, id string) error
	requestCancelFn func(ctx context.Context, actor services.Actor, id, by string, confirm bool) (services.CancelResult, error)
	adminCancelFn   func(ctx context.Context, actor services.Actor, id, reason string) (decimal.Decimal, error)
	getFn           func(ctx context.Context, actor services.Actor, id string) (models.Reservation, error)
	listFn          func(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.Reservation, error)
}

func (s stubReservations) Create(ctx context.Context, actor services.Actor, req services.CreateReservationRequest) (models.Reservation, error) {
	return s.createFn(ctx, actor, req)
}

func (s stubReservations) Confirm(ctx context.Context, actor services.Actor, id string) (decimal.Decimal, error) {
	return s.confirmFn(ctx, actor, id)
}

func (s stubReservations) Reject(ctx context.Context, actor services.Actor, id string) error {
	return s.rejectFn(ctx, actor, id)
}

func (s stubReservations) Complete(ctx context.Context, actor services.Actor, id string) error {
	return s.completeFn(ctx, actor, id)
}

func (s stubReservations) RequestCancel(ctx context.Context, actor services.Actor, id, by string, confirm bool) (services.CancelResult, error) {
	return s.requestCancelFn(ctx, actor, id, by, confirm)
}

func (s stubReservations) AdminCancel(ctx context.Context, actor services.Actor, id, reason string) (decimal.Decimal, error) {
	return s.adminCancelFn(ctx, actor, id, reason)
}

func (s stubReservations) Get(ctx context.Context, actor services.Actor, id string) (models.Reservation, error) {
	return s.getFn(ctx, actor, id)
}

func (s stubReservations) List(ctx context.Context, actor services.Actor, status string, limit, offset int) ([]models.Reservation, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, actor, status, limit, offset)
}

type stubQuota struct {
	statusFn func(ctx context.Context, actor services.Actor, role, actorID string) (services.QuotaStatus, error)
}

func (s stubQuota) Status(ctx context.Context, actor services.Actor, role, actorID string) (services.QuotaStatus, error) {
	return s.statusFn(ctx, actor, role, actorID)
}

type stubCalendar struct {
	availableFn func(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error)
}

func (s stubCalendar) AvailableTables(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error) {
	return s.availableFn(ctx, campusID, start, end)
}

type stubLedger struct {
	balanceFn      func(ctx context.Context, userID string) (decimal.Decimal, error)
	rechargeFn     func(ctx context.Context, actor services.Actor, userID string, amount decimal.Decimal, method string) error
	transactionsFn func(ctx context.Context, actor services.Actor, userID, txType string, limit, offset int) ([]models.Transaction, error)
	selfCheckFn    func(ctx context.Context, actor services.Actor, userID string) (store.BalanceCheck, error)
}

func (s stubLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if s.balanceFn == nil {
		return decimal.Zero, nil
	}
	return s.balanceFn(ctx, userID)
}

func (s stubLedger) Recharge(ctx context.Context, actor services.Actor, userID string, amount decimal.Decimal, method string) error {
	return s.rechargeFn(ctx, actor, userID, amount, method)
}

func (s stubLedger) Transactions(ctx context.Context, actor services.Actor, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	return s.transactionsFn(ctx, actor, userID, txType, limit, offset)
}

func (s stubLedger) SelfCheck(ctx context.Context, actor services.Actor, userID string) (store.BalanceCheck, error) {
	return s.selfCheckFn(ctx, actor, userID)
}

type stubTournament struct {
	signupFn   func(ctx context.Context, actor services.Actor, userID, group string) (models.TournamentSignup, error)
	scheduleFn func(ctx context.Context, actor services.Actor, group string) ([]models.Match, error)
	infoFn     func(ctx context.Context) (services.TournamentInfo, error)
}

func (s stubTournament) Signup(ctx context.Context, actor services.Actor, userID, group string) (models.TournamentSignup, error) {
	return s.signupFn(ctx, actor, userID, group)
}

func (s stubTournament) GenerateSchedule(ctx context.Context, actor services.Actor, group string) ([]models.Match, error) {
	return s.scheduleFn(ctx, actor, group)
}

func (s stubTournament) Info(ctx context.Context) (services.TournamentInfo, error) {
	return s.infoFn(ctx)
}

func (s stubTournament) Participants(context.Context, string) ([]models.TournamentSignup, error) {
	return nil, nil
}

func (s stubTournament) Schedule(context.Context, string) ([]models.Match, error) {
	return nil, nil
}

type stubPairing struct {
	selectFn func(ctx context.Context, actor services.Actor, coachID, studentID string) error
	decideFn func(ctx context.Context, actor services.Actor, coachID, studentID string, approve bool) error
}

func (s stubPairing) Select(ctx context.Context, actor services.Actor, coachID, studentID string) error {
	return s.selectFn(ctx, actor, coachID, studentID)
}

func (s stubPairing) Decide(ctx context.Context, actor services.Actor, coachID, studentID string, approve bool) error {
	return s.decideFn(ctx, actor, coachID, studentID, approve)
}

func (s stubPairing) Pending(context.Context, services.Actor, string) ([]models.Pairing, error) {
	return nil, nil
}

type stubMessages struct{}

func (stubMessages) List(context.Context, services.Actor, bool, int, int) ([]models.Message, error) {
	return []models.Message{}, nil
}

func (stubMessages) MarkRead(context.Context, services.Actor, string) error {
	return services.ErrMessageNotFound
}

func (stubMessages) MarkAllRead(context.Context, services.Actor) (int64, error) {
	return 0, nil
}

type stubReviews struct {
	submitFn  func(ctx context.Context, actor services.Actor, req services.SubmitReviewRequest) (models.Review, error)
	listFn    func(ctx context.Context, actor services.Actor, f store.ReviewFilter, limit, offset int) ([]models.Review, error)
	pendingFn func(ctx context.Context, actor services.Actor, role string) ([]models.Reservation, error)
}

func (s stubReviews) Submit(ctx context.Context, actor services.Actor, req services.SubmitReviewRequest) (models.Review, error) {
	return s.submitFn(ctx, actor, req)
}

func (s stubReviews) List(ctx context.Context, actor services.Actor, f store.ReviewFilter, limit, offset int) ([]models.Review, error) {
	return s.listFn(ctx, actor, f, limit, offset)
}

func (s stubReviews) Pending(ctx context.Context, actor services.Actor, role string) ([]models.Reservation, error) {
	return s.pendingFn(ctx, actor, role)
}

type stubUsers struct {
	roles map[string]string
}

func (s stubUsers) Role(_ context.Context, userID string) (string, error) {
	return s.roles[userID], nil
}

type stubAudit struct {
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAudit) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func newTestHandler(deps Deps) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		AllowedOrigins: "*",
	}
	if deps.Users == nil {
		deps.Users = stubUsers{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAudit{}
	}
	if deps.Messages == nil {
		deps.Messages = stubMessages{}
	}
	return New(cfg, deps, websocket.NewHub())
}

// call sends an authenticated request through the full router.
func call(t *testing.T, h *Handler, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, role, time.Minute)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func stringPtr(value string) *string {
	return &value
}
