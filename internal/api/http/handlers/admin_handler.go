package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-bot/internal/auth"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

// AdminHandler serves the operator endpoints: login, ticket listing and
// dispatch counters.
type AdminHandler struct {
	tickets      repository.TicketRepository
	metrics      *observability.Metrics
	tokens       *auth.TokenManager
	passwordHash string
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(tickets repository.TicketRepository, metrics *observability.Metrics, tokens *auth.TokenManager, passwordHash string) *AdminHandler {
	return &AdminHandler{tickets: tickets, metrics: metrics, tokens: tokens, passwordHash: passwordHash}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	if h.passwordHash == "" {
		return apperrors.NewUnauthorized("admin access is not configured")
	}
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := auth.VerifyPassword(h.passwordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"token":      token,
		"expires_at": expiresAt,
	}})
}

type ticketSummary struct {
	ID        string                `json:"id"`
	Status    domain.TicketStatus   `json:"status"`
	Priority  domain.TicketPriority `json:"priority"`
	Summary   string                `json:"summary"`
	CreatedBy string                `json:"created_by"`
	Assignee  *string               `json:"assignee,omitempty"`
}

// ListTickets GET /admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	tickets, err := h.tickets.ListAll(c.Context(), limit)
	if err != nil {
		return apperrors.NewPersistenceError("failed to list tickets", err)
	}
	items := make([]ticketSummary, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		items = append(items, ticketSummary{
			ID:        t.ID,
			Status:    t.Status,
			Priority:  t.Priority,
			Summary:   t.Summary,
			CreatedBy: t.CreatedBy,
			Assignee:  t.Assignee,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
