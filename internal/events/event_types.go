package events

import (
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketCaptured EventType = "ticket_captured"
	EventTicketClosed   EventType = "ticket_closed"
)

// Event represents a domain event emitted by the ticket workflow.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ChatID    string      `json:"chat_id,omitempty"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketCapturedPayload payload, emitted when field collection completes.
type TicketCapturedPayload struct {
	Summary  string                `json:"summary"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	ResolutionNote string `json:"resolution_note"`
}
