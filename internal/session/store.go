package session

import (
	"context"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// Manager owns per-(chat, user) ticket drafts. A session exists exactly while
// ticket fields are being collected; it is destroyed on completion or
// cancellation.
type Manager interface {
	// OpenSession creates an empty draft for the pair.
	OpenSession(ctx context.Context, chatID, userID string) error
	// GetDraft returns the open draft, or nil when none is open.
	GetDraft(ctx context.Context, chatID, userID string) (*domain.TicketDraft, error)
	// UpdateDraft replaces the stored draft for the pair.
	UpdateDraft(ctx context.Context, chatID, userID string, draft *domain.TicketDraft) error
	// CloseSession removes the draft. Closing an absent session is a no-op.
	CloseSession(ctx context.Context, chatID, userID string) error
}

func sessionKey(chatID, userID string) string {
	return chatID + "|" + userID
}
