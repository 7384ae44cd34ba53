package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketplace_go/internal/domain"
)

// MessagingService owns conversation and message flows. The conversation's
// provider is always the listing owner; client-supplied participant hints
// are advisory only.
type MessagingService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	services      domain.ServiceRepository
	users         domain.UserRepository
	log           *zap.Logger
}

func NewMessagingService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	services domain.ServiceRepository,
	users domain.UserRepository,
	log *zap.Logger,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		services:      services,
		users:         users,
		log:           log,
	}
}

// StartConversation finds or creates the thread for a service between the
// actor and the listing owner. otherUserID is the caller's hint for the
// counterpart; when the actor is the owner it names the client, otherwise
// it is checked against the owner and ignored on mismatch.
func (s *MessagingService) StartConversation(ctx context.Context, actorID, serviceID, otherUserID int64) (*domain.Conversation, bool, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, false, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, false, domain.ErrNotFound
	}

	providerID := svc.UserID
	var clientID int64
	if actorID == providerID {
		clientID = otherUserID
	} else {
		clientID = actorID
		if otherUserID != 0 && otherUserID != providerID {
			s.log.Warn("participant hint does not match listing owner",
				zap.Int64("service_id", serviceID),
				zap.Int64("hinted_user_id", otherUserID),
				zap.Int64("owner_id", providerID))
		}
	}
	if clientID == 0 || clientID == providerID {
		return nil, false, domain.ErrInvalidParticipants
	}

	if other, err := s.users.GetByID(ctx, clientID); err != nil {
		return nil, false, fmt.Errorf("get client: %w", err)
	} else if other == nil {
		return nil, false, domain.ErrInvalidParticipants
	}

	existing, err := s.conversations.FindForService(ctx, serviceID, clientID, providerID)
	if err != nil {
		return nil, false, fmt.Errorf("find conversation: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	conv := &domain.Conversation{
		ServiceID:  serviceID,
		ClientID:   clientID,
		ProviderID: providerID,
	}
	created, err := s.conversations.Create(ctx, conv)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Lost the insert race; the winner's row exists now.
		existing, err = s.conversations.FindForService(ctx, serviceID, clientID, providerID)
		if err != nil {
			return nil, false, fmt.Errorf("find conversation after conflict: %w", err)
		}
		if existing == nil {
			return nil, false, domain.ErrInternal
		}
		return existing, false, nil
	}
	return conv, true, nil
}

func (s *MessagingService) SendMessage(ctx context.Context, actorID, conversationID int64, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyMessage
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.HasParticipant(actorID) {
		return nil, domain.ErrForbidden
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       actorID,
		Body:           body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the thread in ascending order. Fetching a thread
// marks the other side's messages as read.
func (s *MessagingService) ListMessages(ctx context.Context, actorID, conversationID int64) ([]*domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.HasParticipant(actorID) {
		return nil, domain.ErrForbidden
	}

	if err := s.messages.MarkAllRead(ctx, conversationID, actorID); err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return s.messages.ListForConversation(ctx, conversationID)
}

func (s *MessagingService) MarkRead(ctx context.Context, actorID, conversationID int64) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return domain.ErrNotFound
	}
	if !conv.HasParticipant(actorID) {
		return domain.ErrForbidden
	}
	return s.messages.MarkAllRead(ctx, conversationID, actorID)
}

func (s *MessagingService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.messages.CountUnreadForUser(ctx, userID)
}

func (s *MessagingService) ListConversations(ctx context.Context, userID int64) ([]*domain.ConversationSummary, error) {
	return s.conversations.ListForUser(ctx, userID)
}

// GetConversation returns the conversation if the actor participates in it.
func (s *MessagingService) GetConversation(ctx context.Context, actorID, conversationID int64) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.HasParticipant(actorID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}
