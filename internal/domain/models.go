package domain

import "time"

// Roles carried by the access token and checked by the admin surface.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a marketplace account (client, freelancer, or admin).
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          *string   `json:"email,omitempty"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may use the admin surface.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Service represents a freelancer listing that conversations and deletions
// hang off. The owning user is the "provider" of every conversation about it.
type Service struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a message thread scoped to one service and one
// client/provider pair. At most one row exists per
// (service_id, client_id, provider_id) tuple.
type Conversation struct {
	ID         int64     `json:"id"`
	ServiceID  int64     `json:"service_id"`
	ClientID   int64     `json:"client_id"`
	ProviderID int64     `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// HasParticipant reports whether the given user is one of the two
// conversation participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.ClientID == userID || c.ProviderID == userID
}

// OtherParticipant returns the participant that is not the given user.
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.ClientID == userID {
		return c.ProviderID
	}
	return c.ClientID
}

// ConversationSummary is the thread-list view: the conversation plus the
// other participant's name and the service title.
type ConversationSummary struct {
	ConversationID int64     `json:"conversation_id"`
	ServiceID      int64     `json:"service_id"`
	ServiceTitle   string    `json:"service_title"`
	OtherUserName  string    `json:"other_user_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message is a single chat message. Rows are append-only; only the is_read
// flag ever changes after insert.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Body           string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeletionQuota is the per-user daily delete allowance snapshot.
// LastDeleteDate is a UTC calendar day in YYYY-MM-DD form; UsedToday is
// meaningful only when LastDeleteDate equals the current day.
type DeletionQuota struct {
	DailyLimit     int     `json:"daily_limit"`
	Remaining      int     `json:"remaining_deletes"`
	UsedToday      int     `json:"used_today"`
	LastDeleteDate *string `json:"last_delete_date"`
}

// DeletionRecord is one immutable audit row, written for every accepted
// deletion whether self- or admin-initiated.
type DeletionRecord struct {
	ID            int64     `json:"id"`
	ServiceID     int64     `json:"service_id"`
	ServiceTitle  string    `json:"service_title"`
	OwnerID       int64     `json:"service_owner_id"`
	DeletedBy     int64     `json:"deleted_by"`
	DeletedByRole string    `json:"deleted_by_role"`
	Reason        string    `json:"reason"`
	DeletedAt     time.Time `json:"deleted_at"`
}

// MonitoringFlag is the per-user anomaly entry surfaced in the admin review
// queue. A reviewed flag is re-raised (reviewed flips back to false) by any
// later anomalous deletion.
type MonitoringFlag struct {
	UserID        int64      `json:"user_id"`
	Username      string     `json:"username"`
	Email         *string    `json:"email,omitempty"`
	DeleteCount7d int        `json:"delete_count_last_7_days"`
	IsFlagged     bool       `json:"is_flagged"`
	FlaggedReason string     `json:"flagged_reason"`
	FlaggedAt     time.Time  `json:"flagged_at"`
	Reviewed      bool       `json:"reviewed"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes   *string    `json:"review_notes,omitempty"`
	AdminAction   *string    `json:"admin_action,omitempty"`
}

// FlaggedUser pairs a monitoring flag with the user's recent deletion
// history for the admin queue.
type FlaggedUser struct {
	Flag          *MonitoringFlag   `json:"flag"`
	DeleteHistory []*DeletionRecord `json:"delete_history"`
}
