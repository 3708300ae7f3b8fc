package store

import (
	"context"
	"fmt"
	"time"

	"tabletennis/internal/models"
)

// Resource selects which reservation column a conflict check looks at.
type Resource string

const (
	ResourceCoach   Resource = "coach_id"
	ResourceStudent Resource = "student_id"
	ResourceTable   Resource = "table_id"
)

func (r Resource) valid() bool {
	return r == ResourceCoach || r == ResourceStudent || r == ResourceTable
}

// CalendarStore answers overlap questions over open (pending or confirmed)
// reservations. Ranges are half-open: [start, end).
type CalendarStore struct {
	db DB
}

func NewCalendarStore(db DB) *CalendarStore {
	return &CalendarStore{db: db}
}

func (s *CalendarStore) HasConflict(ctx context.Context, q Getter, kind Resource, resourceID string, start, end time.Time) (bool, error) {
	if !kind.valid() {
		return false, fmt.Errorf("unknown calendar resource %q", kind)
	}
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE `+string(kind)+` = $1
			  AND status IN ('pending', 'confirmed')
			  AND NOT (end_time <= $2 OR start_time >= $3)
		)
	`, resourceID, start, end)
	return exists, err
}

// HasPartyConflict checks coach and student together in one round trip.
func (s *CalendarStore) HasPartyConflict(ctx context.Context, q Getter, coachID, studentID string, start, end time.Time) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE status IN ('pending', 'confirmed')
			  AND NOT (end_time <= $1 OR start_time >= $2)
			  AND (coach_id = $3 OR student_id = $4)
		)
	`, start, end, coachID, studentID)
	return exists, err
}

// FreeTables lists tables at the campus with no open reservation overlapping
// [start, end), ordered by id. limit <= 0 means no limit.
func (s *CalendarStore) FreeTables(ctx context.Context, q Selecter, campusID string, start, end time.Time, limit int) ([]models.Table, error) {
	query := `
		SELECT t.id, t.campus_id, t.name
		FROM table_courts t
		WHERE t.campus_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.table_id = t.id
			  AND r.status IN ('pending', 'confirmed')
			  AND NOT (r.end_time <= $2 OR r.start_time >= $3)
		  )
		ORDER BY t.id`
	args := []any{campusID, start, end}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}
	rows := []models.Table{}
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CalendarStore) TableInCampus(ctx context.Context, q Getter, tableID, campusID string) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM table_courts WHERE id = $1 AND campus_id = $2)
	`, tableID, campusID)
	return exists, err
}

// Available is FreeTables outside a transaction with no limit.
func (s *CalendarStore) Available(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error) {
	return s.FreeTables(ctx, s.db, campusID, start, end, 0)
}

// Conflicts is HasConflict outside a transaction.
func (s *CalendarStore) Conflicts(ctx context.Context, kind Resource, resourceID string, start, end time.Time) (bool, error) {
	return s.HasConflict(ctx, s.db, kind, resourceID, start, end)
}
