package services

import (
	"context"
	"time"

	"tabletennis/internal/models"
	"tabletennis/internal/store"
)

type CalendarStore interface {
	HasConflict(ctx context.Context, q store.Getter, kind store.Resource, resourceID string, start, end time.Time) (bool, error)
	HasPartyConflict(ctx context.Context, q store.Getter, coachID, studentID string, start, end time.Time) (bool, error)
	FreeTables(ctx context.Context, q store.Selecter, campusID string, start, end time.Time, limit int) ([]models.Table, error)
	TableInCampus(ctx context.Context, q store.Getter, tableID, campusID string) (bool, error)
	Conflicts(ctx context.Context, kind store.Resource, resourceID string, start, end time.Time) (bool, error)
	Available(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Back-to-back ranges do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type CalendarService struct {
	store CalendarStore
}

func NewCalendarService(store CalendarStore) *CalendarService {
	return &CalendarService{store: store}
}

func (s *CalendarService) HasConflict(ctx context.Context, kind store.Resource, resourceID string, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, ErrInvalidTimeRange
	}
	return s.store.Conflicts(ctx, kind, resourceID, start, end)
}

func (s *CalendarService) AvailableTables(ctx context.Context, campusID string, start, end time.Time) ([]models.Table, error) {
	if campusID == "" {
		return nil, ErrMissingField
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	return s.store.Available(ctx, campusID, start, end)
}

// AssignTable picks the first free table at the campus, by id. Callers must
// not rely on which table they get.
func (s *CalendarService) AssignTable(ctx context.Context, tx store.Tx, campusID string, start, end time.Time) (string, error) {
	tables, err := s.store.FreeTables(ctx, tx, campusID, start, end, 1)
	if err != nil {
		return "", err
	}
	if len(tables) == 0 {
		return "", ErrNoTableAvailable
	}
	return tables[0].ID, nil
}

// checkTable validates a caller-chosen table inside tx.
func (s *CalendarService) checkTable(ctx context.Context, tx store.Tx, tableID, campusID string, start, end time.Time) error {
	ok, err := s.store.TableInCampus(ctx, tx, tableID, campusID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTableNotInCampus
	}
	busy, err := s.store.HasConflict(ctx, tx, store.ResourceTable, tableID, start, end)
	if err != nil {
		return err
	}
	if busy {
		return ErrTimeConflict
	}
	return nil
}
