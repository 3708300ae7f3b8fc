// Package reminder sends "lesson starts soon" messages for confirmed
// reservations. Delivery is best effort and deduplicated, not exactly once.
package reminder

import (
	"context"
	"fmt"
	"time"

	"tabletennis/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	Title = "lesson reminder"

	window   = 5 * time.Minute
	claimTTL = 3 * time.Hour
)

type ReservationSource interface {
	ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error)
}

type MessageLookup interface {
	ExistsWithContent(ctx context.Context, recipientID, title, fragment string) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipientID, title, content string) error
}

// Claimer takes a one-shot lock on key. False means someone already has it.
type Claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisClaimer struct {
	client *redis.Client
}

func NewRedisClaimer(client *redis.Client) *RedisClaimer {
	return &RedisClaimer{client: client}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

// NewRedisClient pings addr and returns nil when it is empty or unreachable,
// in which case the scanner falls back to checking the inbox.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, reminder dedup uses messages table")
		_ = client.Close()
		return nil
	}
	return client
}

type Scanner struct {
	reservations ReservationSource
	messages     MessageLookup
	notifier     Notifier
	claimer      Claimer
	lead         time.Duration
	now          func() time.Time
}

func NewScanner(reservations ReservationSource, messages MessageLookup, notifier Notifier, claimer Claimer, lead time.Duration, now func() time.Time) *Scanner {
	if now == nil {
		now = time.Now
	}
	return &Scanner{
		reservations: reservations,
		messages:     messages,
		notifier:     notifier,
		claimer:      claimer,
		lead:         lead,
		now:          now,
	}
}

// Run scans every interval until ctx is done.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Scan(ctx); err != nil {
				log.Error().Err(err).Msg("reminder scan failed")
			} else if n > 0 {
				log.Info().Int("sent", n).Msg("lesson reminders sent")
			}
		}
	}
}

// Scan reminds both parties of confirmed lessons starting within
// [now+lead-5m, now+lead+5m) and returns how many messages went out.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	now := s.now()
	from := now.Add(s.lead - window)
	to := now.Add(s.lead + window)
	upcoming, err := s.reservations.ConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, r := range upcoming {
		content := fmt.Sprintf("Your lesson starts at %s. Reservation ID: %s", r.StartTime.Format(time.RFC3339), r.ID)
		for _, recipient := range []string{r.StudentID, r.CoachID} {
			if !s.shouldSend(ctx, r.ID, recipient) {
				continue
			}
			if err := s.notifier.Notify(ctx, recipient, Title, content); err != nil {
				log.Warn().Err(err).Str("reservation_id", r.ID).Str("recipient_id", recipient).Msg("reminder not delivered")
				continue
			}
			sent++
		}
	}
	return sent, nil
}

func (s *Scanner) shouldSend(ctx context.Context, reservationID, recipientID string) bool {
	if s.claimer != nil {
		key := "reminder:" + reservationID + ":" + recipientID
		ok, err := s.claimer.Claim(ctx, key, claimTTL)
		if err == nil {
			return ok
		}
		log.Warn().Err(err).Str("key", key).Msg("reminder claim failed, checking inbox")
	}
	exists, err := s.messages.ExistsWithContent(ctx, recipientID, Title, "Reservation ID: "+reservationID)
	if err != nil {
		log.Warn().Err(err).Str("reservation_id", reservationID).Msg("reminder dedup lookup failed")
		return false
	}
	return !exists
}
