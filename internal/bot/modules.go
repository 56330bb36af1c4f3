package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/conversation"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

// TicketCaptureModule claims updates while a ticket draft is open for the
// session and feeds them into the workflow as field values.
type TicketCaptureModule struct {
	workflow  *service.TicketWorkflow
	transport Transport
	logger    *zap.Logger
}

// NewTicketCaptureModule constructs the module.
func NewTicketCaptureModule(workflow *service.TicketWorkflow, transport Transport, logger *zap.Logger) *TicketCaptureModule {
	return &TicketCaptureModule{workflow: workflow, transport: transport, logger: logger}
}

func (m *TicketCaptureModule) Name() string { return "ticket_capture" }

func (m *TicketCaptureModule) CanHandle(ctx context.Context, upd Update, user *domain.User) bool {
	return m.workflow.HasActiveDraft(ctx, upd.ChatID, user.ID)
}

func (m *TicketCaptureModule) Handle(ctx context.Context, upd Update, user *domain.User) error {
	ticket, err := m.workflow.CollectTicketField(ctx, upd.ChatID, user.ID, upd.Text)
	if err != nil {
		return err
	}

	if m.workflow.HasActiveDraft(ctx, upd.ChatID, user.ID) {
		next, err := m.workflow.ActiveStep(ctx, upd.ChatID, user.ID)
		if err != nil {
			return err
		}
		return m.reply(ctx, upd, stepPrompt(next))
	}
	return m.reply(ctx, upd,
		fmt.Sprintf("Ticket %s captured: %s [%s]. Use /ticket show %s to review it.",
			ticket.ID, ticket.Summary, ticket.Priority, ticket.ID))
}

func (m *TicketCaptureModule) reply(ctx context.Context, upd Update, text string) error {
	if err := m.transport.SendMessage(ctx, upd.ChatID, upd.ThreadID, text); err != nil {
		m.logger.Warn("ticket module reply failed", zap.Error(err))
	}
	return nil
}

// TranscriptionModule claims updates that carry audio and replies with the
// transcript. The transcriber collaborator owns the download pipeline.
type TranscriptionModule struct {
	transcriber Transcriber
	transport   Transport
	logger      *zap.Logger
}

// NewTranscriptionModule constructs the module.
func NewTranscriptionModule(transcriber Transcriber, transport Transport, logger *zap.Logger) *TranscriptionModule {
	return &TranscriptionModule{transcriber: transcriber, transport: transport, logger: logger}
}

func (m *TranscriptionModule) Name() string { return "transcription" }

func (m *TranscriptionModule) CanHandle(_ context.Context, upd Update, _ *domain.User) bool {
	return m.transcriber != nil && upd.Audio != nil
}

func (m *TranscriptionModule) Handle(ctx context.Context, upd Update, _ *domain.User) error {
	transcript, err := m.transcriber.Transcribe(ctx, *upd.Audio)
	if err != nil {
		return apperrors.NewTransportError("could not transcribe the audio message", err)
	}
	if err := m.transport.SendMessage(ctx, upd.ChatID, upd.ThreadID, "Transcript: "+transcript); err != nil {
		m.logger.Warn("transcription reply failed", zap.Error(err))
	}
	return nil
}

// RelayModule is the catch-all conversational handler, registered last. It
// relays the message to the language-model backend with the session's
// short-term context.
type RelayModule struct {
	cache     *conversation.ContextCache
	client    ChatCompletionClient
	history   repository.ConversationHistoryRepository
	transport Transport
	logger    *zap.Logger
}

// NewRelayModule constructs the module. history may be nil when exchanges
// should not be persisted.
func NewRelayModule(cache *conversation.ContextCache, client ChatCompletionClient, history repository.ConversationHistoryRepository, transport Transport, logger *zap.Logger) *RelayModule {
	return &RelayModule{cache: cache, client: client, history: history, transport: transport, logger: logger}
}

func (m *RelayModule) Name() string { return "conversation_relay" }

func (m *RelayModule) CanHandle(context.Context, Update, *domain.User) bool { return true }

func (m *RelayModule) Handle(ctx context.Context, upd Update, user *domain.User) error {
	if err := m.transport.SendTypingIndicator(ctx, upd.ChatID, upd.ThreadID); err != nil {
		m.logger.Debug("typing indicator failed", zap.Error(err))
	}

	messages := m.cache.BuildRequestMessages(ctx, upd.ChatID, user.ID, upd.Text)
	reply, err := m.client.Complete(ctx, messages)
	if err != nil {
		return apperrors.NewTransportError("the assistant is unavailable right now", err)
	}

	m.cache.RecordExchange(ctx, upd.ChatID, user.ID, upd.Text, reply)
	if m.history != nil {
		if err := m.history.Append(ctx, domain.Exchange{
			ChatID:      upd.ChatID,
			UserID:      user.ID,
			RequestText: upd.Text,
			ReplyText:   reply,
		}); err != nil {
			m.logger.Warn("failed to persist exchange", zap.Error(err))
		}
	}

	if err := m.transport.SendMessage(ctx, upd.ChatID, upd.ThreadID, reply); err != nil {
		m.logger.Warn("relay reply failed", zap.Error(err))
	}
	return nil
}
