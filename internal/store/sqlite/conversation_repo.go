package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace_go/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

// Create inserts the conversation unless the (service, client, provider)
// tuple already exists. The unique constraint is what makes concurrent
// "start chat" clicks collapse onto a single thread.
func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) (bool, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (service_id, client_id, provider_id, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (service_id, client_id, provider_id) DO NOTHING
		RETURNING id, created_at
	`, c.ServiceID, c.ClientID, c.ProviderID).Scan(&c.ID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert conversation: %w", err)
	}
	return true, nil
}

func (r *ConversationRepo) FindForService(ctx context.Context, serviceID, userA, userB int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, service_id, client_id, provider_id, created_at
		FROM conversations
		WHERE service_id = ?1
		  AND ((client_id = ?2 AND provider_id = ?3)
		    OR (client_id = ?3 AND provider_id = ?2))
		LIMIT 1
	`, serviceID, userA, userB).Scan(&c.ID, &c.ServiceID, &c.ClientID, &c.ProviderID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, service_id, client_id, provider_id, created_at
		FROM conversations WHERE id = ?
	`, id).Scan(&c.ID, &c.ServiceID, &c.ClientID, &c.ProviderID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// ListForUser returns the caller's threads with the other participant's
// name and the service title. The service join is LEFT because threads
// outlive deleted listings.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.service_id, COALESCE(s.title, '') AS service_title, c.created_at,
		       CASE WHEN c.client_id = ?1 THEN pu.username ELSE cu.username END AS other_user_name
		FROM conversations c
		JOIN users cu ON cu.id = c.client_id
		JOIN users pu ON pu.id = c.provider_id
		LEFT JOIN services s ON s.id = c.service_id
		WHERE c.client_id = ?1 OR c.provider_id = ?1
		ORDER BY c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.ConversationSummary
	for rows.Next() {
		s := &domain.ConversationSummary{}
		if err := rows.Scan(&s.ConversationID, &s.ServiceID, &s.ServiceTitle, &s.CreatedAt, &s.OtherUserName); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
