package store

import (
	"context"

	"tabletennis/internal/models"
)

type TournamentStore struct {
	db DB
}

type GroupCount struct {
	GroupLevel string `db:"group_level" json:"group_level"`
	Count      int    `db:"count" json:"count"`
}

func NewTournamentStore(db DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) HasSignup(ctx context.Context, q Getter, userID, cycle string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM tournament_signups WHERE user_id = $1 AND cycle = $2)
	`, userID, cycle)
	return exists, err
}

func (s *TournamentStore) CreateSignup(ctx context.Context, tx Execer, signup models.TournamentSignup) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_signups (id, user_id, cycle, group_level, paid)
		VALUES ($1, $2, $3, $4, $5)
	`, signup.ID, signup.UserID, signup.Cycle, signup.GroupLevel, signup.Paid)
	return err
}

// PaidPlayers returns paid participants of a group in signup order.
func (s *TournamentStore) PaidPlayers(ctx context.Context, q Selecter, cycle, group string) ([]string, error) {
	ids := []string{}
	err := q.SelectContext(ctx, &ids, `
		SELECT user_id
		FROM tournament_signups
		WHERE cycle = $1 AND group_level = $2 AND paid
		ORDER BY created_at, id
	`, cycle, group)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *TournamentStore) ListSignups(ctx context.Context, cycle, group string) ([]models.TournamentSignup, error) {
	rows := []models.TournamentSignup{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, cycle, group_level, paid, created_at
		FROM tournament_signups
		WHERE cycle = $1 AND group_level = $2
		ORDER BY created_at, id
	`, cycle, group)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TournamentStore) CountByGroup(ctx context.Context, cycle string) ([]GroupCount, error) {
	rows := []GroupCount{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT group_level, COUNT(1) AS count
		FROM tournament_signups
		WHERE cycle = $1
		GROUP BY group_level
		ORDER BY group_level
	`, cycle)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TournamentStore) DeleteMatches(ctx context.Context, tx Execer, cycle, group string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM tournament_matches WHERE cycle = $1 AND group_level = $2
	`, cycle, group)
	return err
}

func (s *TournamentStore) InsertMatch(ctx context.Context, tx Execer, m models.Match) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_matches (id, cycle, group_level, round_no, player1_id, player2_id, table_id, match_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.Cycle, m.GroupLevel, m.RoundNo, m.Player1ID, m.Player2ID, m.TableID, m.MatchTime)
	return err
}

func (s *TournamentStore) ListMatches(ctx context.Context, cycle, group string) ([]models.Match, error) {
	rows := []models.Match{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, cycle, group_level, round_no, player1_id, player2_id, table_id, match_time
		FROM tournament_matches
		WHERE cycle = $1 AND group_level = $2
		ORDER BY round_no, id
	`, cycle, group)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
