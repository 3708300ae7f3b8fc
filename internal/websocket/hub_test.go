package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(buffer int) *Client {
	return &Client{send: make(chan []byte, buffer)}
}

func TestHubPushesToEveryConnectionOfUser(t *testing.T) {
	hub := NewHub()
	a, b, other := newTestClient(1), newTestClient(1), newTestClient(1)
	hub.Register("user-1", a)
	hub.Register("user-1", b)
	hub.Register("user-2", other)

	hub.BroadcastBalance("user-1", BalanceUpdate{UserID: "user-1", Balance: "75.00", Reason: "refund"})

	for _, c := range []*Client{a, b} {
		select {
		case frame := <-c.send:
			var ev struct {
				Type string        `json:"type"`
				Data BalanceUpdate `json:"data"`
			}
			if err := json.Unmarshal(frame, &ev); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if ev.Type != EventBalance || ev.Data.Balance != "75.00" {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			t.Fatal("expected a frame")
		}
	}
	if len(other.send) != 0 {
		t.Fatal("other user should not receive the push")
	}
}

func TestHubDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub()
	c := newTestClient(1)
	hub.Register("user-1", c)

	hub.PushMessage("user-1", MessagePush{ID: "m1"})
	hub.PushMessage("user-1", MessagePush{ID: "m2"})

	if len(c.send) != 1 {
		t.Fatalf("expected 1 buffered frame, got %d", len(c.send))
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestClient(1)
	hub.Register("user-1", c)
	hub.Unregister("user-1", c)
	if hub.Connected("user-1") != 0 {
		t.Fatal("expected no connections")
	}
	hub.Unregister("user-1", c)
}

func TestUpgraderOriginCheck(t *testing.T) {
	up := NewUpgrader([]string{"https://club.example"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "https://club.example")
	if !up.CheckOrigin(req) {
		t.Fatal("expected allowed origin")
	}
	req.Header.Set("Origin", "https://evil.example")
	if up.CheckOrigin(req) {
		t.Fatal("expected rejected origin")
	}
	if !NewUpgrader([]string{"*"}).CheckOrigin(req) {
		t.Fatal("wildcard should allow any origin")
	}
}
