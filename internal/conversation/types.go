// Package conversation provides durable conversation persistence.
//
// Responsibilities: store and retrieve user-owned conversations and their
// append-only message logs in PostgreSQL. Every call is a fresh read or
// write against durable storage; the package keeps no process-local state,
// so a restart between two requests is invisible to callers.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. The messages table enforces the same constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryLimit is the number of most recent messages returned by
// History when the caller passes a non-positive limit.
const DefaultHistoryLimit int32 = 20

// Conversation is a durable, user-owned sequence of messages.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn within a conversation. Immutable once written.
// OwnerID duplicates the conversation's owner so isolation checks never
// need a join.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	OwnerID        string    `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
