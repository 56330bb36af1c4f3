package bot

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// Command carries everything a command handler needs for one invocation.
type Command struct {
	Update Update
	User   *domain.User
	// Args are the whitespace-separated tokens after the command name.
	Args []string
}

// CommandHandler executes one slash command.
type CommandHandler interface {
	Name() string
	Description() string
	Execute(ctx context.Context, cmd Command) error
}

// CommandRegistry is an immutable name→handler index built once at startup.
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

// NewCommandRegistry indexes handlers by normalized name. The first handler
// registered for a name wins; later duplicates are dropped with a warning so
// a collision can never fail startup.
func NewCommandRegistry(logger *zap.Logger, handlers ...CommandHandler) *CommandRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := make(map[string]CommandHandler, len(handlers))
	for _, handler := range handlers {
		name := NormalizeCommandName(handler.Name())
		if _, exists := index[name]; exists {
			logger.Warn("duplicate command registration dropped", zap.String("command", name))
			continue
		}
		index[name] = handler
	}
	return &CommandRegistry{handlers: index}
}

// NormalizeCommandName trims and lowercases a command name for lookup.
func NormalizeCommandName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Find returns the handler for the token, or nil when unknown.
func (r *CommandRegistry) Find(token string) CommandHandler {
	return r.handlers[NormalizeCommandName(token)]
}

// Handlers enumerates all registered handlers sorted by name, for building
// help text.
func (r *CommandRegistry) Handlers() []CommandHandler {
	result := make([]CommandHandler, 0, len(r.handlers))
	for _, handler := range r.handlers {
		result = append(result, handler)
	}
	sort.Slice(result, func(i, j int) bool {
		return NormalizeCommandName(result[i].Name()) < NormalizeCommandName(result[j].Name())
	})
	return result
}
