package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/session"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

// TicketWorkflow drives a ticket from creation through field collection to
// completion and closure. Draft state lives in the session store, keyed by
// (chat, user); the backing ticket row is created up front so the id is
// stable for the whole capture flow.
type TicketWorkflow struct {
	tickets    repository.TicketRepository
	sessions   session.Manager
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketWorkflowDependencies bundles collaborators for the workflow.
type TicketWorkflowDependencies struct {
	TicketRepo repository.TicketRepository
	Sessions   session.Manager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketWorkflow constructs the workflow.
func NewTicketWorkflow(deps TicketWorkflowDependencies) *TicketWorkflow {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketWorkflow{
		tickets:    deps.TicketRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// StartTicketCreation opens a capture session and creates the backing
// ticket. It fails with a conflict when a draft is already open for the
// pair.
func (w *TicketWorkflow) StartTicketCreation(ctx context.Context, chatID, userID string) (*domain.Ticket, error) {
	existing, err := w.sessions.GetDraft(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewConflict("a ticket draft is already open; finish or cancel it first", nil)
	}

	ticket := &domain.Ticket{
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityMedium,
		CreatedBy: userID,
	}
	if err := w.tickets.CreateDraft(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError("failed to create ticket", err)
	}

	if err := w.sessions.OpenSession(ctx, chatID, userID); err != nil {
		return nil, err
	}
	draft := domain.NewTicketDraft()
	draft.TicketID = ticket.ID
	if err := w.sessions.UpdateDraft(ctx, chatID, userID, draft); err != nil {
		return nil, err
	}

	w.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ChatID:   chatID,
		UserID:   userID,
		Payload:  events.TicketCreatedPayload{Priority: ticket.Priority},
	})
	return ticket, nil
}

// ActiveStep returns the first unfilled step for the open draft, or "" when
// no draft is open or all three collected steps are present.
func (w *TicketWorkflow) ActiveStep(ctx context.Context, chatID, userID string) (domain.DraftStep, error) {
	draft, err := w.sessions.GetDraft(ctx, chatID, userID)
	if err != nil {
		return "", err
	}
	if draft == nil {
		return "", nil
	}
	return draft.ActiveStep(), nil
}

// CollectTicketField validates and stores rawText for the draft's active
// step, persists the updated ticket and closes the session once DETAILS is
// supplied. The ticket stays OPEN after the session closes.
func (w *TicketWorkflow) CollectTicketField(ctx context.Context, chatID, userID, rawText string) (*domain.Ticket, error) {
	draft, err := w.sessions.GetDraft(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if draft == nil || draft.TicketID == "" {
		return nil, apperrors.NewNotFound("ticket draft", nil)
	}

	step := draft.ActiveStep()
	if step == "" {
		return nil, apperrors.NewConflict("ticket draft is already complete", nil)
	}

	value, err := normalizeFieldValue(step, rawText)
	if err != nil {
		return nil, err
	}

	ticket, err := w.tickets.GetByID(ctx, draft.TicketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": draft.TicketID})
		}
		return nil, apperrors.NewPersistenceError("failed to load ticket", err)
	}

	switch step {
	case domain.StepSummary:
		ticket.Summary = value
	case domain.StepPriority:
		ticket.Priority = domain.TicketPriority(value)
	case domain.StepDetails:
		ticket.Details = value
	}
	ticket.UpdatedAt = time.Now()

	if err := w.tickets.Save(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError("failed to persist ticket", err)
	}

	draft.Set(step, value)
	if draft.IsComplete() {
		if err := w.sessions.CloseSession(ctx, chatID, userID); err != nil {
			return nil, err
		}
		w.publish(ctx, events.Event{
			Type:     events.EventTicketCaptured,
			TicketID: ticket.ID,
			ChatID:   chatID,
			UserID:   userID,
			Payload:  events.TicketCapturedPayload{Summary: ticket.Summary, Priority: ticket.Priority},
		})
	} else if err := w.sessions.UpdateDraft(ctx, chatID, userID, draft); err != nil {
		return nil, err
	}

	return ticket, nil
}

// CancelTicketCreation discards the open draft. The backing ticket row is
// kept as-is; only the capture session is destroyed.
func (w *TicketWorkflow) CancelTicketCreation(ctx context.Context, chatID, userID string) error {
	draft, err := w.sessions.GetDraft(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if draft == nil {
		return apperrors.NewNotFound("ticket draft", nil)
	}
	return w.sessions.CloseSession(ctx, chatID, userID)
}

// GetTicket returns the ticket only when userID is its creator or assignee.
// Absence and denial are indistinguishable so existence never leaks.
func (w *TicketWorkflow) GetTicket(ctx context.Context, ticketID, userID string) (*domain.Ticket, error) {
	ticket, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewPersistenceError("failed to load ticket", err)
	}
	if !ticket.AccessibleBy(userID) {
		return nil, nil
	}
	return ticket, nil
}

// ListTicketsForUser returns all tickets created by the user, id ascending.
func (w *TicketWorkflow) ListTicketsForUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	tickets, err := w.tickets.ListByCreator(ctx, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to list tickets", err)
	}
	return tickets, nil
}

// CloseTicket closes the ticket and appends the resolution note to its
// details. Only the creator or assignee may close. There is deliberately no
// guard against closing an already-closed ticket: each close appends a new
// resolution line.
func (w *TicketWorkflow) CloseTicket(ctx context.Context, ticketID, userID, resolutionNote string) (*domain.Ticket, error) {
	ticket, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.NewPersistenceError("failed to load ticket", err)
	}
	if !ticket.AccessibleBy(userID) {
		return nil, apperrors.NewAuthorizationError("only the creator or assignee may close a ticket")
	}

	ticket.Status = domain.TicketStatusClosed
	ticket.Details += "\nResolution: " + resolutionNote
	ticket.UpdatedAt = time.Now()
	if err := w.tickets.Save(ctx, ticket); err != nil {
		return nil, apperrors.NewPersistenceError("failed to persist ticket", err)
	}

	w.publish(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		UserID:   userID,
		Payload:  events.TicketClosedPayload{ResolutionNote: resolutionNote},
	})
	return ticket, nil
}

// HasActiveDraft reports whether a capture session is open for the pair.
func (w *TicketWorkflow) HasActiveDraft(ctx context.Context, chatID, userID string) bool {
	draft, err := w.sessions.GetDraft(ctx, chatID, userID)
	if err != nil {
		w.logger.Warn("failed to check ticket session", zap.Error(err))
		return false
	}
	return draft != nil
}

func normalizeFieldValue(step domain.DraftStep, rawText string) (string, error) {
	switch step {
	case domain.StepPriority:
		priority, ok := domain.ParsePriority(rawText)
		if !ok {
			return "", apperrors.NewValidationError(
				fmt.Sprintf("unknown priority %q; use LOW, MEDIUM, HIGH or URGENT", strings.TrimSpace(rawText)),
				map[string]any{"value": rawText},
			)
		}
		return string(priority), nil
	default:
		value := strings.TrimSpace(rawText)
		if value == "" {
			return "", apperrors.NewValidationError(fmt.Sprintf("%s must not be empty", strings.ToLower(string(step))), nil)
		}
		return value, nil
	}
}

func (w *TicketWorkflow) publish(ctx context.Context, event events.Event) {
	if w.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = w.dispatcher.Publish(ctx, event)
}
