package domain

import "time"

// MessageRole distinguishes the two sides of a conversation turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is one half-turn of a conversation. Messages are
// immutable and owned exclusively by the per-session context buffer.
type ConversationMessage struct {
	Role      MessageRole
	Content   string
	Timestamp time.Time
}

// Exchange is a persisted request/reply pair as stored in conversation
// history. Either side may be blank (for example when the model call failed
// after the request was recorded).
type Exchange struct {
	ChatID      string
	UserID      string
	RequestText string
	ReplyText   string
	CreatedAt   time.Time
}
