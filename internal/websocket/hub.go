package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	EventBalance = "balance"
	EventMessage = "message"
)

// Event is the envelope every push frame uses.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

type BalanceUpdate struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
	Reason  string `json:"reason,omitempty"`
}

type MessagePush struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Hub fans push events out to every open connection of a user. Slow clients
// drop frames instead of blocking the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Push(userID string, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, At: time.Now().UTC(), Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("encode push event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			log.Debug().Str("user_id", userID).Str("type", eventType).Msg("push dropped for slow client")
		}
	}
}

func (h *Hub) BroadcastBalance(userID string, update BalanceUpdate) {
	h.Push(userID, EventBalance, update)
}

func (h *Hub) PushMessage(userID string, msg MessagePush) {
	h.Push(userID, EventMessage, msg)
}
