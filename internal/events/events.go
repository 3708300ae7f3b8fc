// Package events publishes domain events to a RabbitMQ topic exchange after
// the state change they describe has committed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const DefaultExchange = "tabletennis.events"

var ErrClosed = errors.New("publisher closed")

type Envelope struct {
	ID         string    `json:"id"`
	RoutingKey string    `json:"routing_key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func encode(routingKey string, payload any, now time.Time) ([]byte, string, error) {
	env := Envelope{
		ID:         uuid.NewString(),
		RoutingKey: routingKey,
		OccurredAt: now.UTC(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	return body, env.ID, err
}

const (
	defaultDialTimeout = 2 * time.Second
	minRedialDelay     = time.Second
	maxRedialDelay     = 30 * time.Second
)

var ErrUnavailable = errors.New("broker unavailable")

// Publisher keeps one connection and channel open and redials lazily after
// a failure. Dials are bounded by the caller's context and dialTimeout, and
// after a failed dial further attempts wait out an exponential delay so an
// outage costs one connect attempt per delay rather than one per event.
type Publisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration
	now         func() time.Time
	dial        func(ctx context.Context) (*amqp.Connection, error)

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	closed     bool
	redialWait time.Duration
	retryAt    time.Time
}

func NewPublisher(url, exchange string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange, dialTimeout: defaultDialTimeout, now: time.Now}
	p.dial = p.dialBroker
	return p
}

func (p *Publisher) dialBroker(ctx context.Context) (*amqp.Connection, error) {
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			// amqp clears the deadline once the handshake completes.
			if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if now := p.now(); now.Before(p.retryAt) {
		return nil, fmt.Errorf("%w: next dial in %s", ErrUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
	}
	conn, err := p.dial(ctx)
	if err != nil {
		p.backOff()
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.backOff()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.backOff()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.redialWait, p.retryAt = 0, time.Time{}
	return ch, nil
}

func (p *Publisher) backOff() {
	p.redialWait = min(max(p.redialWait*2, minRedialDelay), maxRedialDelay)
	p.retryAt = p.now().Add(p.redialWait)
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, id, err := encode(routingKey, payload, time.Now())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	log.Debug().Str("routing_key", routingKey).Str("event_id", id).Msg("event published")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}

// Sink is what the server holds on to: a Publisher or a Noop.
type Sink interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close() error                                { return nil }
