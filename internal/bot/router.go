package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

// CommandMarker prefixes slash commands in message text.
const CommandMarker = "/"

// UpdateRouter owns the one-pass dispatch of an inbound update: identity
// resolution, command lookup, then the ordered handler-module chain. The
// catch-all relay module must be registered last.
type UpdateRouter struct {
	users     UserResolver
	registry  *CommandRegistry
	modules   []Module
	transport Transport
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Users     UserResolver
	Registry  *CommandRegistry
	Modules   []Module
	Transport Transport
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewUpdateRouter constructs the router. Module order is significant and is
// preserved as given.
func NewUpdateRouter(deps RouterDependencies) *UpdateRouter {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateRouter{
		users:     deps.Users,
		registry:  deps.Registry,
		modules:   deps.Modules,
		transport: deps.Transport,
		metrics:   deps.Metrics,
		logger:    logger,
	}
}

// Route processes exactly one update. Handler failures become user-visible
// "[Error] ..." replies and never escape the router.
func (r *UpdateRouter) Route(ctx context.Context, upd Update) {
	if strings.TrimSpace(upd.Text) == "" && upd.Audio == nil {
		r.logger.Debug("skipping update without content", zap.String("chat_id", upd.ChatID))
		r.metrics.RecordUpdate("skipped")
		return
	}
	if upd.Sender == nil || upd.Sender.ExternalID == "" {
		r.logger.Debug("skipping update without sender", zap.String("chat_id", upd.ChatID))
		r.metrics.RecordUpdate("skipped")
		return
	}

	user, err := r.users.EnsureUser(ctx, service.Sender{
		ExternalID:  upd.Sender.ExternalID,
		DisplayName: upd.Sender.DisplayName,
		Username:    upd.Sender.Username,
	})
	if err != nil {
		r.logger.Error("failed to resolve user identity",
			zap.String("external_id", upd.Sender.ExternalID),
			zap.Error(err))
		r.metrics.RecordError("identity", apperrors.ToDomainError(err).Code)
		r.reply(ctx, upd, "[Error] could not resolve your user account, please try again later")
		return
	}

	text := strings.TrimSpace(upd.Text)
	if strings.HasPrefix(text, CommandMarker) {
		r.dispatchCommand(ctx, upd, user, text)
		return
	}

	for _, module := range r.modules {
		if !module.CanHandle(ctx, upd, user) {
			continue
		}
		r.logger.Debug("module claimed update",
			zap.String("module", module.Name()),
			zap.String("chat_id", upd.ChatID),
			zap.String("user_id", user.ID))
		r.metrics.RecordUpdate("module")
		r.metrics.RecordModule(module.Name())
		r.invoke(ctx, upd, "module:"+module.Name(), func() error {
			return module.Handle(ctx, upd, user)
		})
		return
	}

	// Unreachable while the catch-all relay is registered last.
	r.logger.Warn("no module claimed update", zap.String("chat_id", upd.ChatID))
	r.metrics.RecordUpdate("dropped")
}

func (r *UpdateRouter) dispatchCommand(ctx context.Context, upd Update, user *domain.User, text string) {
	fields := strings.Fields(text)
	token := fields[0]

	handler := r.registry.Find(strings.TrimPrefix(token, CommandMarker))
	if handler == nil {
		r.metrics.RecordUpdate("unknown_command")
		r.reply(ctx, upd, "Unknown command: "+token)
		return
	}

	r.metrics.RecordUpdate("command")
	r.metrics.RecordCommand(NormalizeCommandName(handler.Name()))
	r.invoke(ctx, upd, "command:"+NormalizeCommandName(handler.Name()), func() error {
		return handler.Execute(ctx, Command{Update: upd, User: user, Args: fields[1:]})
	})
}

// invoke runs one handler, converting panics and typed errors into a
// user-visible reply so a single chat can never take down the loop.
func (r *UpdateRouter) invoke(ctx context.Context, upd Update, stage string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked", zap.String("stage", stage), zap.Any("panic", rec))
			r.metrics.RecordError(stage, apperrors.CodeInternal)
			r.reply(ctx, upd, "[Error] internal error")
		}
	}()

	if err := fn(); err != nil {
		domainErr := apperrors.ToDomainError(err)
		r.logger.Error("handler failed",
			zap.String("stage", stage),
			zap.String("code", domainErr.Code),
			zap.Error(domainErr))
		r.metrics.RecordError(stage, domainErr.Code)
		r.reply(ctx, upd, "[Error] "+domainErr.Message)
	}
}

func (r *UpdateRouter) reply(ctx context.Context, upd Update, text string) {
	if err := r.transport.SendMessage(ctx, upd.ChatID, upd.ThreadID, text); err != nil {
		r.logger.Warn("reply failed",
			zap.String("chat_id", upd.ChatID),
			zap.Error(err))
	}
}
