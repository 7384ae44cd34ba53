package domain

import (
	"context"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ServiceRepository defines persistence operations for listings.
type ServiceRepository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id int64) (*Service, error)
	List(ctx context.Context) ([]*Service, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Service, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// Create inserts the conversation and reports whether a row was
	// actually created. It returns false without error when the
	// (service_id, client_id, provider_id) tuple already exists, so a
	// losing concurrent inserter can re-read the winner's row.
	Create(ctx context.Context, c *Conversation) (bool, error)
	// FindForService looks up the conversation for a service and an
	// unordered participant pair (either orientation matches).
	FindForService(ctx context.Context, serviceID, userA, userB int64) (*Conversation, error)
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*ConversationSummary, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListForConversation returns all messages in ascending creation
	// order, each annotated with the sender's username.
	ListForConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	// MarkAllRead flips is_read on every message in the conversation not
	// sent by the reader. Idempotent.
	MarkAllRead(ctx context.Context, conversationID, readerID int64) error
	// CountUnreadForUser counts unread messages addressed to the user
	// across the conversations they participate in.
	CountUnreadForUser(ctx context.Context, userID int64) (int, error)
}

// DeleteServiceRequest carries one delete attempt through the storage
// layer. Day is the UTC quota day (YYYY-MM-DD); WindowStart bounds the
// trailing anomaly window.
type DeleteServiceRequest struct {
	ServiceID    int64
	ActorID      int64
	ActorRole    string
	Reason       string
	Now          time.Time
	Day          string
	WindowStart  time.Time
	EnforceQuota bool
	RequireOwner bool
	DailyLimit   int
}

// DeleteServiceResult reports an accepted deletion. RecentCount includes
// the deletion just recorded.
type DeleteServiceResult struct {
	Record      *DeletionRecord
	Remaining   int
	RecentCount int
}

// DeletionRepository owns the quota state and the immutable audit trail.
// DeleteService must be transactional: either the listing is gone, the
// quota consumed, and the audit row written, or nothing changed at all.
type DeletionRepository interface {
	DeleteService(ctx context.Context, req DeleteServiceRequest) (*DeleteServiceResult, error)
	GetQuota(ctx context.Context, userID int64, day string, limit int) (*DeletionQuota, error)
	ListRecords(ctx context.Context) ([]*DeletionRecord, error)
	ListRecordsForOwner(ctx context.Context, ownerID int64, limit int) ([]*DeletionRecord, error)
}

// MonitoringRepository owns the per-user anomaly flags.
type MonitoringRepository interface {
	// RaiseFlag upserts the user's monitoring entry: flagged, unreviewed,
	// reason appended, flagged_at refreshed.
	RaiseFlag(ctx context.Context, userID int64, deleteCount int, reason string, at time.Time) error
	GetByUserID(ctx context.Context, userID int64) (*MonitoringFlag, error)
	// ListFlagged returns entries awaiting review (flagged and not yet
	// reviewed), newest first.
	ListFlagged(ctx context.Context) ([]*MonitoringFlag, error)
	Review(ctx context.Context, userID int64, action, notes string, at time.Time) error
}

// Repositories bundles one store implementation for injection into the
// service layer and router.
type Repositories struct {
	Users         UserRepository
	Services      ServiceRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Deletions     DeletionRepository
	Monitoring    MonitoringRepository
}
