package bot

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/service"
)

// Sender is the platform-level author of an update.
type Sender struct {
	ExternalID  string
	DisplayName string
	Username    string
}

// Audio describes a voice or audio attachment on an update.
type Audio struct {
	URL      string
	MimeType string
	FileName string
}

// Update is one inbound event from the messaging platform.
type Update struct {
	ChatID     string
	ThreadID   string
	Text       string
	Sender     *Sender
	Audio      *Audio
	ReceivedAt time.Time
}

// SequenceKey identifies the ordered processing lane for this update.
// Updates sharing a key are processed in arrival order.
func (u Update) SequenceKey() string {
	if u.Sender == nil {
		return u.ChatID
	}
	return u.ChatID + "|" + u.Sender.ExternalID
}

// Transport sends replies back to the platform. Implementations are
// best-effort; the router logs failures and never propagates them.
type Transport interface {
	SendMessage(ctx context.Context, chatID, threadID, text string) error
	SendTypingIndicator(ctx context.Context, chatID, threadID string) error
}

// UserResolver maps a platform sender to the internal identity.
type UserResolver interface {
	EnsureUser(ctx context.Context, sender service.Sender) (*domain.User, error)
}

// ChatCompletionClient produces an assistant reply for ordered messages.
type ChatCompletionClient interface {
	Complete(ctx context.Context, messages []domain.ConversationMessage) (string, error)
}

// Transcriber converts an audio attachment to text. The download and
// transcoding pipeline behind it is a collaborator concern.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// Module is a handler that may claim a non-command update. Modules are
// consulted in registration order; the first claim wins.
type Module interface {
	Name() string
	CanHandle(ctx context.Context, upd Update, user *domain.User) bool
	Handle(ctx context.Context, upd Update, user *domain.User) error
}
