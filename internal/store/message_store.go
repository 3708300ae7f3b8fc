package store

import (
	"context"

	"tabletennis/internal/models"
)

type MessageStore struct {
	db DB
}

func NewMessageStore(db DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, m models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, recipient_id, title, content)
		VALUES ($1, $2, $3, $4)
	`, m.ID, m.RecipientID, m.Title, m.Content)
	return err
}

func (s *MessageStore) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Message, error) {
	rows := []models.Message{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, recipient_id, title, content, is_read, created_at
		FROM messages
		WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, id, recipientID string) (int64, error) {
	return rowsAffected(s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE WHERE id = $1 AND recipient_id = $2
	`, id, recipientID))
}

func (s *MessageStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return rowsAffected(s.db.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read
	`, recipientID))
}

// ExistsWithContent reports whether the recipient already has a message with
// this title whose content contains fragment.
func (s *MessageStore) ExistsWithContent(ctx context.Context, recipientID, title, fragment string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE recipient_id = $1 AND title = $2 AND strpos(content, $3) > 0
		)
	`, recipientID, title, fragment)
	return exists, err
}
