package notify

import (
	"context"

	"tabletennis/internal/models"
	"tabletennis/internal/websocket"

	"github.com/google/uuid"
)

type MessageWriter interface {
	Create(ctx context.Context, m models.Message) error
}

type Pusher interface {
	PushMessage(userID string, msg websocket.MessagePush)
}

// Notifier stores an inbox message and pushes it to any open websocket of
// the recipient.
type Notifier struct {
	messages MessageWriter
	pusher   Pusher
}

func New(messages MessageWriter, pusher Pusher) *Notifier {
	return &Notifier{messages: messages, pusher: pusher}
}

func (n *Notifier) Notify(ctx context.Context, recipientID, title, content string) error {
	msg := models.Message{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Title:       title,
		Content:     content,
	}
	if err := n.messages.Create(ctx, msg); err != nil {
		return err
	}
	if n.pusher != nil {
		n.pusher.PushMessage(recipientID, websocket.MessagePush{ID: msg.ID, Title: title, Content: content})
	}
	return nil
}
