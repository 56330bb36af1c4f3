package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/conversation"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

func stepPrompt(step domain.DraftStep) string {
	switch step {
	case domain.StepSummary:
		return "Describe the issue in one line (summary)."
	case domain.StepPriority:
		return "What priority? (LOW, MEDIUM, HIGH or URGENT)"
	case domain.StepDetails:
		return "Add any details that will help us resolve it."
	default:
		return ""
	}
}

func formatTicketLine(t *domain.Ticket) string {
	return fmt.Sprintf("%s [%s/%s] %s", t.ID, t.Status, t.Priority, t.Summary)
}

// TicketCommand drives ticket capture and lifecycle from chat.
type TicketCommand struct {
	workflow  *service.TicketWorkflow
	transport Transport
	logger    *zap.Logger
}

// NewTicketCommand constructs the /ticket handler.
func NewTicketCommand(workflow *service.TicketWorkflow, transport Transport, logger *zap.Logger) *TicketCommand {
	return &TicketCommand{workflow: workflow, transport: transport, logger: logger}
}

func (c *TicketCommand) Name() string { return "ticket" }

func (c *TicketCommand) Description() string {
	return "manage support tickets: new | list | show <id> | close <id> <note> | cancel"
}

func (c *TicketCommand) Execute(ctx context.Context, cmd Command) error {
	if len(cmd.Args) == 0 {
		return c.reply(ctx, cmd.Update, "Usage: /ticket new | list | show <id> | close <id> <note> | cancel")
	}

	switch strings.ToLower(cmd.Args[0]) {
	case "new":
		ticket, err := c.workflow.StartTicketCreation(ctx, cmd.Update.ChatID, cmd.User.ID)
		if err != nil {
			return err
		}
		return c.reply(ctx, cmd.Update,
			fmt.Sprintf("Opened ticket %s. %s", ticket.ID, stepPrompt(domain.StepSummary)))

	case "list":
		tickets, err := c.workflow.ListTicketsForUser(ctx, cmd.User.ID)
		if err != nil {
			return err
		}
		if len(tickets) == 0 {
			return c.reply(ctx, cmd.Update, "You have no tickets.")
		}
		lines := make([]string, 0, len(tickets))
		for i := range tickets {
			lines = append(lines, formatTicketLine(&tickets[i]))
		}
		return c.reply(ctx, cmd.Update, strings.Join(lines, "\n"))

	case "show":
		if len(cmd.Args) < 2 {
			return apperrors.NewValidationError("usage: /ticket show <id>", nil)
		}
		ticket, err := c.workflow.GetTicket(ctx, cmd.Args[1], cmd.User.ID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return c.reply(ctx, cmd.Update, "Ticket not found.")
		}
		return c.reply(ctx, cmd.Update,
			fmt.Sprintf("%s\n%s", formatTicketLine(ticket), ticket.Details))

	case "close":
		if len(cmd.Args) < 3 {
			return apperrors.NewValidationError("usage: /ticket close <id> <resolution note>", nil)
		}
		note := strings.Join(cmd.Args[2:], " ")
		ticket, err := c.workflow.CloseTicket(ctx, cmd.Args[1], cmd.User.ID, note)
		if err != nil {
			return err
		}
		return c.reply(ctx, cmd.Update, fmt.Sprintf("Ticket %s closed.", ticket.ID))

	case "cancel":
		if err := c.workflow.CancelTicketCreation(ctx, cmd.Update.ChatID, cmd.User.ID); err != nil {
			return err
		}
		return c.reply(ctx, cmd.Update, "Ticket draft discarded.")

	default:
		return apperrors.NewValidationError(
			fmt.Sprintf("unknown subcommand %q; try /ticket new, list, show, close or cancel", cmd.Args[0]), nil)
	}
}

func (c *TicketCommand) reply(ctx context.Context, upd Update, text string) error {
	if err := c.transport.SendMessage(ctx, upd.ChatID, upd.ThreadID, text); err != nil {
		c.logger.Warn("ticket command reply failed", zap.Error(err))
	}
	return nil
}

// ResetCommand drops the cached conversation context for the session.
type ResetCommand struct {
	cache     *conversation.ContextCache
	transport Transport
	logger    *zap.Logger
}

// NewResetCommand constructs the /reset handler.
func NewResetCommand(cache *conversation.ContextCache, transport Transport, logger *zap.Logger) *ResetCommand {
	return &ResetCommand{cache: cache, transport: transport, logger: logger}
}

func (c *ResetCommand) Name() string { return "reset" }

func (c *ResetCommand) Description() string {
	return "forget the current conversation context"
}

func (c *ResetCommand) Execute(ctx context.Context, cmd Command) error {
	c.cache.Reset(cmd.Update.ChatID, cmd.User.ID)
	if err := c.transport.SendMessage(ctx, cmd.Update.ChatID, cmd.Update.ThreadID, "Conversation context cleared."); err != nil {
		c.logger.Warn("reset command reply failed", zap.Error(err))
	}
	return nil
}

// HelpCommand lists the available commands. The handler enumeration is
// provided lazily because the registry is built after its handlers.
type HelpCommand struct {
	transport Transport
	handlers  func() []CommandHandler
	logger    *zap.Logger
}

// NewHelpCommand constructs the /help handler.
func NewHelpCommand(transport Transport, handlers func() []CommandHandler, logger *zap.Logger) *HelpCommand {
	return &HelpCommand{transport: transport, handlers: handlers, logger: logger}
}

func (c *HelpCommand) Name() string { return "help" }

func (c *HelpCommand) Description() string {
	return "show this help"
}

func (c *HelpCommand) Execute(ctx context.Context, cmd Command) error {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, handler := range c.handlers() {
		if NormalizeCommandName(handler.Name()) == c.Name() {
			continue
		}
		fmt.Fprintf(&sb, "/%s - %s\n", NormalizeCommandName(handler.Name()), handler.Description())
	}
	sb.WriteString("Anything else you send is answered by the assistant.")
	if err := c.transport.SendMessage(ctx, cmd.Update.ChatID, cmd.Update.ThreadID, sb.String()); err != nil {
		c.logger.Warn("help command reply failed", zap.Error(err))
	}
	return nil
}
