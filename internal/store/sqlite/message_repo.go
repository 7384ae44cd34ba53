package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace_go/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, is_read, created_at)
		VALUES (?, ?, ?, 0, CURRENT_TIMESTAMP)
		RETURNING id, created_at
	`, m.ConversationID, m.SenderID, m.Body).Scan(&m.ID, &m.CreatedAt)
}

// ListForConversation returns messages in ascending creation order, ties
// broken by id so the order is stable within one timestamp.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id, u.username, m.body, m.is_read, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) MarkAllRead(ctx context.Context, conversationID, readerID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_id != ? AND is_read = 0
	`, conversationID, readerID)
	return err
}

func (r *MessageRepo) CountUnreadForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(m.id)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.sender_id != ?1
		  AND m.is_read = 0
		  AND (c.client_id = ?1 OR c.provider_id = ?1)
	`, userID).Scan(&count)
	return count, err
}
