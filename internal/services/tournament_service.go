package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabletennis/internal/db"
	"tabletennis/internal/models"
	"tabletennis/internal/roundrobin"
	"tabletennis/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type TournamentStore interface {
	HasSignup(ctx context.Context, q store.Getter, userID, cycle string) (bool, error)
	CreateSignup(ctx context.Context, tx store.Execer, signup models.TournamentSignup) error
	PaidPlayers(ctx context.Context, q store.Selecter, cycle, group string) ([]string, error)
	ListSignups(ctx context.Context, cycle, group string) ([]models.TournamentSignup, error)
	CountByGroup(ctx context.Context, cycle string) ([]store.GroupCount, error)
	DeleteMatches(ctx context.Context, tx store.Execer, cycle, group string) error
	InsertMatch(ctx context.Context, tx store.Execer, m models.Match) error
	ListMatches(ctx context.Context, cycle, group string) ([]models.Match, error)
}

var groupLevels = map[string]bool{"A": true, "B": true, "C": true}

const registrationLead = 7 * 24 * time.Hour

// TournamentDate returns the monthly tournament day (the fourth Sunday, at
// midnight in loc) on or after now's date.
func TournamentDate(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	date := fourthSunday(local.Year(), local.Month(), loc)
	if date.Before(today) {
		next := time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, loc)
		date = fourthSunday(next.Year(), next.Month(), loc)
	}
	return date
}

func fourthSunday(year int, month time.Month, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (7 - int(first.Weekday())) % 7
	return first.AddDate(0, 0, offset+21)
}

// Cycle is the YYYY-MM key of the tournament a signup belongs to.
func Cycle(date time.Time) string {
	return date.Format("2006-01")
}

type TournamentInfo struct {
	Cycle                string             `json:"cycle"`
	TournamentDate       time.Time          `json:"tournament_date"`
	RegistrationDeadline time.Time          `json:"registration_deadline"`
	RegistrationOpen     bool               `json:"registration_open"`
	EntryFee             string             `json:"entry_fee"`
	Groups               []store.GroupCount `json:"groups"`
	TotalSignups         int                `json:"total_signups"`
}

type TournamentService struct {
	txRunner db.TxRunner
	store    TournamentStore
	ledger   LedgerWriter
	effects  Effects
	fee      decimal.Decimal
	loc      *time.Location
	now      func() time.Time
}

func NewTournamentService(txRunner db.TxRunner, tournaments TournamentStore, ledger LedgerWriter, effects Effects, fee decimal.Decimal, loc *time.Location, now func() time.Time) *TournamentService {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &TournamentService{
		txRunner: txRunner,
		store:    tournaments,
		ledger:   ledger,
		effects:  effects,
		fee:      fee,
		loc:      loc,
		now:      now,
	}
}

func (s *TournamentService) currentCycle() (string, time.Time) {
	date := TournamentDate(s.now(), s.loc)
	return Cycle(date), date
}

// Signup registers userID for the upcoming tournament and debits the entry
// fee in the same transaction.
func (s *TournamentService) Signup(ctx context.Context, actor Actor, userID, group string) (models.TournamentSignup, error) {
	if userID == "" {
		return models.TournamentSignup{}, ErrMissingField
	}
	if !groupLevels[group] {
		return models.TournamentSignup{}, ErrInvalidGroup
	}
	if !actor.Owns(userID) {
		return models.TournamentSignup{}, ErrPermissionDenied
	}
	cycle, date := s.currentCycle()
	if !s.now().Before(date.Add(-registrationLead)) {
		return models.TournamentSignup{}, ErrRegistrationClosed
	}

	signup := models.TournamentSignup{
		ID:         uuid.NewString(),
		UserID:     userID,
		Cycle:      cycle,
		GroupLevel: group,
		Paid:       true,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := s.store.HasSignup(ctx, tx, userID, cycle)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadySignedUp
		}
		if s.fee.IsPositive() {
			err = s.ledger.DebitTx(ctx, tx, Entry{
				UserID:      userID,
				Amount:      s.fee,
				Type:        models.TxTournamentFee,
				Description: fmt.Sprintf("Tournament %s group %s entry fee", cycle, group),
				RefID:       signup.ID,
			})
			if err != nil {
				return err
			}
		}
		return s.store.CreateSignup(ctx, tx, signup)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.TournamentSignup{}, ErrAlreadySignedUp
		}
		return models.TournamentSignup{}, err
	}

	s.effects.notify(ctx, userID, "Tournament signup",
		fmt.Sprintf("You are registered for group %s of the %s tournament on %s. Entry fee: %s.",
			group, cycle, date.Format("2006-01-02"), s.fee.StringFixed(2)))
	s.effects.audit(ctx, actor.ID, "tournament_signup", "tournament_signup", signup.ID, map[string]any{
		"user_id": userID,
		"group":   group,
		"cycle":   cycle,
	})
	s.effects.publish(ctx, "tournament.signup", map[string]any{
		"signup_id":   signup.ID,
		"user_id":     userID,
		"group_level": group,
		"cycle":       cycle,
	})
	if s.effects.Hub != nil {
		if balance, err := s.ledger.Balance(ctx, userID); err == nil {
			s.effects.balance(userID, balance, models.TxTournamentFee)
		}
	}
	return signup, nil
}

// GenerateSchedule replaces the group's round-robin schedule for the current
// cycle with a fresh one built from its paid players.
func (s *TournamentService) GenerateSchedule(ctx context.Context, actor Actor, group string) ([]models.Match, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if !groupLevels[group] {
		return nil, ErrInvalidGroup
	}
	cycle, _ := s.currentCycle()

	var matches []models.Match
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		players, err := s.store.PaidPlayers(ctx, tx, cycle, group)
		if err != nil {
			return err
		}
		pairings, err := roundrobin.Generate(players)
		switch {
		case errors.Is(err, roundrobin.ErrTooFewPlayers):
			return ErrNotEnoughPlayers
		case errors.Is(err, roundrobin.ErrTooManyPlayers):
			return ErrGroupTooLarge
		case err != nil:
			return err
		}
		if err := s.store.DeleteMatches(ctx, tx, cycle, group); err != nil {
			return err
		}
		matches = make([]models.Match, 0, len(pairings))
		for _, p := range pairings {
			m := models.Match{
				ID:         uuid.NewString(),
				Cycle:      cycle,
				GroupLevel: group,
				RoundNo:    p.Round,
				Player1ID:  p.Player1,
				Player2ID:  p.Player2,
			}
			if err := s.store.InsertMatch(ctx, tx, m); err != nil {
				return err
			}
			matches = append(matches, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notified := map[string]bool{}
	for _, m := range matches {
		for _, id := range []string{m.Player1ID, m.Player2ID} {
			if notified[id] {
				continue
			}
			notified[id] = true
			s.effects.notify(ctx, id, "Tournament schedule published",
				fmt.Sprintf("The group %s schedule for the %s tournament is available.", group, cycle))
		}
	}
	s.effects.audit(ctx, actor.ID, "tournament_schedule", "tournament_group", cycle+"/"+group, map[string]any{"created": len(matches)})
	s.effects.publish(ctx, "tournament.scheduled", map[string]any{
		"cycle":       cycle,
		"group_level": group,
		"created":     len(matches),
	})
	return matches, nil
}

func (s *TournamentService) Info(ctx context.Context) (TournamentInfo, error) {
	cycle, date := s.currentCycle()
	counts, err := s.store.CountByGroup(ctx, cycle)
	if err != nil {
		return TournamentInfo{}, err
	}
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	deadline := date.Add(-registrationLead)
	return TournamentInfo{
		Cycle:                cycle,
		TournamentDate:       date,
		RegistrationDeadline: deadline,
		RegistrationOpen:     s.now().Before(deadline),
		EntryFee:             s.fee.StringFixed(2),
		Groups:               counts,
		TotalSignups:         total,
	}, nil
}

func (s *TournamentService) Participants(ctx context.Context, group string) ([]models.TournamentSignup, error) {
	if !groupLevels[group] {
		return nil, ErrInvalidGroup
	}
	cycle, _ := s.currentCycle()
	return s.store.ListSignups(ctx, cycle, group)
}

func (s *TournamentService) Schedule(ctx context.Context, group string) ([]models.Match, error) {
	if !groupLevels[group] {
		return nil, ErrInvalidGroup
	}
	cycle, _ := s.currentCycle()
	return s.store.ListMatches(ctx, cycle, group)
}
