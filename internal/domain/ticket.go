package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParsePriority matches raw user input against the known priorities,
// case-insensitively. The bool result is false for unknown values.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch TicketPriority(strings.ToUpper(strings.TrimSpace(raw))) {
	case TicketPriorityLow:
		return TicketPriorityLow, true
	case TicketPriorityMedium:
		return TicketPriorityMedium, true
	case TicketPriorityHigh:
		return TicketPriorityHigh, true
	case TicketPriorityUrgent:
		return TicketPriorityUrgent, true
	default:
		return "", false
	}
}

// Ticket is the aggregate for support requests captured through the bot.
// Once the repository assigns an ID it never changes; every mutation is
// persisted as a whole snapshot via Save.
type Ticket struct {
	ID        string
	Status    TicketStatus
	Priority  TicketPriority
	Summary   string
	Details   string
	CreatedBy string
	Assignee  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessibleBy reports whether the given user may read this ticket.
func (t *Ticket) AccessibleBy(userID string) bool {
	if t.CreatedBy == userID {
		return true
	}
	return t.Assignee != nil && *t.Assignee == userID
}
