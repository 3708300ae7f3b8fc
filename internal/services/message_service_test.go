package services

import (
	"context"
	"testing"

	"tabletennis/internal/models"

	"github.com/stretchr/testify/assert"
)

type stubMessageStore struct {
	markRows int64
}

func (s stubMessageStore) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, _, _ int) ([]models.Message, error) {
	return []models.Message{{ID: "m1", RecipientID: recipientID, IsRead: !unreadOnly}}, nil
}

func (s stubMessageStore) MarkRead(context.Context, string, string) (int64, error) {
	return s.markRows, nil
}

func (s stubMessageStore) MarkAllRead(context.Context, string) (int64, error) {
	return 4, nil
}

func TestMessageServiceScopesToActor(t *testing.T) {
	svc := NewMessageService(stubMessageStore{markRows: 1})
	msgs, err := svc.List(context.Background(), student, true, 20, 0)
	assert.NoError(t, err)
	assert.Equal(t, student.ID, msgs[0].RecipientID)

	assert.NoError(t, svc.MarkRead(context.Background(), student, "m1"))
	n, err := svc.MarkAllRead(context.Background(), student)
	assert.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestMarkReadOtherUsersMessage(t *testing.T) {
	svc := NewMessageService(stubMessageStore{})
	assert.ErrorIs(t, svc.MarkRead(context.Background(), student, "m1"), ErrMessageNotFound)
}
