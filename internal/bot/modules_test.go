package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/conversation"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	"github.com/spec-kit/helpdesk-bot/internal/session"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

type stubCompletion struct {
	reply string
	err   error
	last  []domain.ConversationMessage
}

func (c *stubCompletion) Complete(_ context.Context, messages []domain.ConversationMessage) (string, error) {
	c.last = messages
	return c.reply, c.err
}

type memoryHistory struct {
	mu        sync.Mutex
	exchanges []domain.Exchange
}

func (h *memoryHistory) FindRecent(_ context.Context, chatID, userID string, limit int) ([]domain.Exchange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.Exchange
	for _, ex := range h.exchanges {
		if ex.ChatID == chatID && ex.UserID == userID {
			out = append(out, ex)
		}
	}
	if limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (h *memoryHistory) Append(_ context.Context, exchange domain.Exchange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = append(h.exchanges, exchange)
	return nil
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, Audio) (string, error) {
	return s.text, s.err
}

func newCaptureWorkflow() *service.TicketWorkflow {
	return service.NewTicketWorkflow(service.TicketWorkflowDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Sessions:   session.NewMemoryManager(),
		Logger:     zap.NewNop(),
	})
}

func TestTicketCaptureModule_ClaimsOnlyWithActiveDraft(t *testing.T) {
	ctx := context.Background()
	workflow := newCaptureWorkflow()
	module := NewTicketCaptureModule(workflow, &recordingTransport{}, zap.NewNop())
	user := &domain.User{ID: "u-1"}
	upd := textUpdate("anything")

	assert.False(t, module.CanHandle(ctx, upd, user))

	_, err := workflow.StartTicketCreation(ctx, upd.ChatID, user.ID)
	require.NoError(t, err)
	assert.True(t, module.CanHandle(ctx, upd, user))
}

func TestTicketCaptureModule_PromptsThroughSteps(t *testing.T) {
	ctx := context.Background()
	workflow := newCaptureWorkflow()
	transport := &recordingTransport{}
	module := NewTicketCaptureModule(workflow, transport, zap.NewNop())
	user := &domain.User{ID: "u-1"}

	ticket, err := workflow.StartTicketCreation(ctx, "10", user.ID)
	require.NoError(t, err)

	require.NoError(t, module.Handle(ctx, textUpdate("printer down"), user))
	require.NoError(t, module.Handle(ctx, textUpdate("high"), user))
	require.NoError(t, module.Handle(ctx, textUpdate("third floor, model X"), user))

	sent := transport.sent()
	require.Len(t, sent, 3)
	assert.Contains(t, sent[0], "priority")
	assert.Contains(t, sent[1], "details")
	assert.Contains(t, sent[2], "Ticket "+ticket.ID+" captured")
	assert.False(t, module.CanHandle(ctx, textUpdate("x"), user))
}

func TestTicketCaptureModule_SurfacesValidationError(t *testing.T) {
	ctx := context.Background()
	workflow := newCaptureWorkflow()
	transport := &recordingTransport{}
	module := NewTicketCaptureModule(workflow, transport, zap.NewNop())
	user := &domain.User{ID: "u-1"}

	_, err := workflow.StartTicketCreation(ctx, "10", user.ID)
	require.NoError(t, err)
	require.NoError(t, module.Handle(ctx, textUpdate("printer down"), user))

	err = module.Handle(ctx, textUpdate("asap"), user)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestTranscriptionModule_CanHandle(t *testing.T) {
	ctx := context.Background()
	user := &domain.User{ID: "u-1"}
	audioUpd := Update{ChatID: "10", Sender: &Sender{ExternalID: "U1"}, Audio: &Audio{URL: "u", MimeType: "audio/ogg"}}

	withBackend := NewTranscriptionModule(&stubTranscriber{text: "hello"}, &recordingTransport{}, zap.NewNop())
	assert.True(t, withBackend.CanHandle(ctx, audioUpd, user))
	assert.False(t, withBackend.CanHandle(ctx, textUpdate("no audio"), user))

	// Without a backend the module never claims, so audio falls through.
	withoutBackend := NewTranscriptionModule(nil, &recordingTransport{}, zap.NewNop())
	assert.False(t, withoutBackend.CanHandle(ctx, audioUpd, user))
}

func TestTranscriptionModule_RepliesWithTranscript(t *testing.T) {
	ctx := context.Background()
	transport := &recordingTransport{}
	module := NewTranscriptionModule(&stubTranscriber{text: "hello world"}, transport, zap.NewNop())
	upd := Update{ChatID: "10", Sender: &Sender{ExternalID: "U1"}, Audio: &Audio{URL: "u", MimeType: "audio/ogg"}}

	require.NoError(t, module.Handle(ctx, upd, &domain.User{ID: "u-1"}))
	require.Len(t, transport.sent(), 1)
	assert.Equal(t, "Transcript: hello world", transport.sent()[0])

	failing := NewTranscriptionModule(&stubTranscriber{err: errors.New("codec")}, transport, zap.NewNop())
	err := failing.Handle(ctx, upd, &domain.User{ID: "u-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))
}

func TestRelayModule_RelaysAndRecords(t *testing.T) {
	ctx := context.Background()
	transport := &recordingTransport{}
	history := &memoryHistory{}
	cache := conversation.NewContextCache(history, 6, zap.NewNop())
	completion := &stubCompletion{reply: "42"}
	module := NewRelayModule(cache, completion, history, transport, zap.NewNop())
	user := &domain.User{ID: "u-1"}

	assert.True(t, module.CanHandle(ctx, textUpdate("anything"), user))

	require.NoError(t, module.Handle(ctx, textUpdate("what is the answer?"), user))

	require.Len(t, transport.sent(), 1)
	assert.Equal(t, "42", transport.sent()[0])
	require.Len(t, completion.last, 1)
	assert.Equal(t, "what is the answer?", completion.last[0].Content)
	require.Len(t, history.exchanges, 1)
	assert.Equal(t, "42", history.exchanges[0].ReplyText)

	// The follow-up turn carries the recorded context.
	require.NoError(t, module.Handle(ctx, textUpdate("why?"), user))
	assert.Len(t, completion.last, 3)
}

func TestRelayModule_CompletionFailure(t *testing.T) {
	ctx := context.Background()
	transport := &recordingTransport{}
	cache := conversation.NewContextCache(nil, 6, zap.NewNop())
	module := NewRelayModule(cache, &stubCompletion{err: errors.New("rate limited")}, nil, transport, zap.NewNop())

	err := module.Handle(ctx, textUpdate("hello"), &domain.User{ID: "u-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))
	assert.Empty(t, transport.sent())

	// The failed turn is not recorded; the next request repeats only itself.
	stub := &stubCompletion{reply: "ok"}
	retry := NewRelayModule(cache, stub, nil, transport, zap.NewNop())
	require.NoError(t, retry.Handle(ctx, textUpdate("hello"), &domain.User{ID: "u-1"}))
	assert.Len(t, stub.last, 1)
}

func TestHelpCommand_ExcludesItself(t *testing.T) {
	transport := &recordingTransport{}
	var registry *CommandRegistry
	help := NewHelpCommand(transport, func() []CommandHandler { return registry.Handlers() }, zap.NewNop())
	registry = NewCommandRegistry(nil, &stubCommand{name: "ticket"}, &stubCommand{name: "reset"}, help)

	require.NoError(t, help.Execute(context.Background(), Command{Update: textUpdate("/help"), User: &domain.User{ID: "u-1"}}))

	require.Len(t, transport.sent(), 1)
	text := transport.sent()[0]
	assert.Contains(t, text, "/ticket")
	assert.Contains(t, text, "/reset")
	assert.NotContains(t, text, "/help")
}

func TestTicketCommand_Scenario(t *testing.T) {
	ctx := context.Background()
	workflow := newCaptureWorkflow()
	transport := &recordingTransport{}
	cmd := NewTicketCommand(workflow, transport, zap.NewNop())
	user := &domain.User{ID: "u-1"}
	upd := textUpdate("/ticket")

	// No tickets yet.
	require.NoError(t, cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"list"}}))
	assert.Equal(t, "You have no tickets.", transport.sent()[0])

	require.NoError(t, cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"new"}}))
	assert.Contains(t, transport.sent()[1], "Opened ticket ")

	// Double start surfaces the conflict to the router.
	err := cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"new"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	require.NoError(t, cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"cancel"}}))
	assert.Equal(t, "Ticket draft discarded.", transport.sent()[2])

	// Missing and foreign tickets read the same.
	require.NoError(t, cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"show", "nope"}}))
	assert.Equal(t, "Ticket not found.", transport.sent()[3])

	err = cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"show"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	err = cmd.Execute(ctx, Command{Update: upd, User: user, Args: []string{"bogus"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
