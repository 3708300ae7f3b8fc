package notify

import (
	"context"
	"errors"
	"testing"

	"tabletennis/internal/models"
	"tabletennis/internal/websocket"
)

type stubWriter struct {
	created []models.Message
	err     error
}

func (s *stubWriter) Create(_ context.Context, m models.Message) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, m)
	return nil
}

type stubPusher struct {
	pushed map[string][]websocket.MessagePush
}

func (s *stubPusher) PushMessage(userID string, msg websocket.MessagePush) {
	if s.pushed == nil {
		s.pushed = map[string][]websocket.MessagePush{}
	}
	s.pushed[userID] = append(s.pushed[userID], msg)
}

func TestNotifyStoresThenPushes(t *testing.T) {
	writer := &stubWriter{}
	pusher := &stubPusher{}
	n := New(writer, pusher)

	if err := n.Notify(context.Background(), "coach-1", "New reservation request", "Reservation ID: r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.created) != 1 || writer.created[0].RecipientID != "coach-1" || writer.created[0].ID == "" {
		t.Fatalf("unexpected stored messages: %#v", writer.created)
	}
	got := pusher.pushed["coach-1"]
	if len(got) != 1 || got[0].ID != writer.created[0].ID {
		t.Fatalf("unexpected pushes: %#v", got)
	}
}

func TestNotifySkipsPushWhenStoreFails(t *testing.T) {
	writer := &stubWriter{err: errors.New("db down")}
	pusher := &stubPusher{}
	n := New(writer, pusher)

	if err := n.Notify(context.Background(), "coach-1", "t", "c"); err == nil {
		t.Fatal("expected error")
	}
	if len(pusher.pushed) != 0 {
		t.Fatal("expected no push")
	}
}
