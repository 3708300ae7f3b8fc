package services

import (
	"context"

	"tabletennis/internal/models"
)

type MessageStore interface {
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Message, error)
	MarkRead(ctx context.Context, id, recipientID string) (int64, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// MessageService is the read side of the inbox; writes go through notify.
type MessageService struct {
	store MessageStore
}

func NewMessageService(messages MessageStore) *MessageService {
	return &MessageService{store: messages}
}

func (s *MessageService) List(ctx context.Context, actor Actor, unreadOnly bool, limit, offset int) ([]models.Message, error) {
	return s.store.ListByRecipient(ctx, actor.ID, unreadOnly, limit, offset)
}

func (s *MessageService) MarkRead(ctx context.Context, actor Actor, id string) error {
	rows, err := s.store.MarkRead(ctx, id, actor.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MessageService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.store.MarkAllRead(ctx, actor.ID)
}
