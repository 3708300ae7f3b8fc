// Package license keeps the deployment's license state in memory and gates
// the API on it.
package license

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"time"

	"tabletennis/internal/models"

	"github.com/rs/zerolog/log"
)

type Source interface {
	Latest(ctx context.Context) (models.License, error)
}

// State is a snapshot of the most recent license lookup. License is nil when
// none exists or the lookup failed.
type State struct {
	License   *models.License
	CheckedAt time.Time
}

// IsValid reports whether the license in s covers now's calendar date in loc.
// The end date itself is still valid.
func IsValid(s State, now time.Time, loc *time.Location) bool {
	if s.License == nil {
		return false
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	e := s.License.EndDate
	end := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	return !end.Before(today)
}

type Status struct {
	Valid        bool       `json:"valid"`
	PurchaserOrg string     `json:"purchaser_org,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	DaysLeft     *int       `json:"days_left,omitempty"`
}

type Cache struct {
	source Source
	loc    *time.Location
	now    func() time.Time

	mu    sync.RWMutex
	state State
}

func NewCache(source Source, loc *time.Location, now func() time.Time) *Cache {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{source: source, loc: loc, now: now}
}

// Refresh reloads the latest license. Lookup failures leave the cache in the
// invalid state.
func (c *Cache) Refresh(ctx context.Context) error {
	lic, err := c.source.Latest(ctx)
	next := State{CheckedAt: c.now()}
	if err == nil {
		next.License = &lic
	}
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("license refresh failed")
			}
		}
	}
}

func (c *Cache) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Cache) Valid() bool {
	return IsValid(c.Snapshot(), c.now(), c.loc)
}

func (c *Cache) Status() Status {
	s := c.Snapshot()
	if s.License == nil {
		return Status{}
	}
	now := c.now()
	end := s.License.EndDate
	days := int(math.Ceil(end.Sub(now).Hours() / 24))
	return Status{
		Valid:        IsValid(s, now, c.loc),
		PurchaserOrg: s.License.PurchaserOrg,
		EndDate:      &end,
		DaysLeft:     &days,
	}
}
