package services

import (
	"context"
	"encoding/json"
	"time"

	"tabletennis/internal/websocket"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Notifier interface {
	Notify(ctx context.Context, recipientID, title, content string) error
}

type AuditLogger interface {
	Log(ctx context.Context, actorID, action, entityType, entityID, data string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// Effects bundles the post-commit side channels. Every call is best effort:
// failures are logged and never reach the caller. Nil members are skipped.
type Effects struct {
	Notifier Notifier
	Audit    AuditLogger
	Events   EventPublisher
	Hub      BalanceHub
}

const sideEffectTimeout = 5 * time.Second

// detach keeps request values but drops the request's cancellation, so a
// client disconnect right after commit does not swallow notifications.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

func (e Effects) notify(ctx context.Context, recipientID, title, content string) {
	if e.Notifier == nil || recipientID == "" {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := e.Notifier.Notify(ctx, recipientID, title, content); err != nil {
		log.Warn().Err(err).Str("recipient_id", recipientID).Str("title", title).Msg("notification failed")
	}
}

func (e Effects) audit(ctx context.Context, actorID, action, entityType, entityID string, data map[string]any) {
	if e.Audit == nil {
		return
	}
	payload := "{}"
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			payload = string(b)
		}
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := e.Audit.Log(ctx, actorID, action, entityType, entityID, payload); err != nil {
		log.Error().Err(err).Str("action", action).Str("entity_id", entityID).Msg("audit log failed")
	}
}

func (e Effects) publish(ctx context.Context, routingKey string, payload any) {
	if e.Events == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := e.Events.Publish(ctx, routingKey, payload); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("event publish failed")
	}
}

func (e Effects) balance(userID string, balance decimal.Decimal, reason string) {
	if e.Hub == nil {
		return
	}
	e.Hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		UserID:  userID,
		Balance: balance.StringFixed(2),
		Reason:  reason,
	})
}
