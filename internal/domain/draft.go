package domain

// DraftStep identifies one field-collection step of the ticket capture flow.
type DraftStep string

const (
	StepSummary      DraftStep = "SUMMARY"
	StepPriority     DraftStep = "PRIORITY"
	StepDetails      DraftStep = "DETAILS"
	StepConfirmation DraftStep = "CONFIRMATION"
)

// collectionOrder is the order in which steps are offered to the user.
// CONFIRMATION is declared but never gates completion; the upstream product
// accepted confirmation values without requiring them and that behavior is
// kept.
var collectionOrder = []DraftStep{StepSummary, StepPriority, StepDetails}

// TicketDraft is the mutable capture state for one (chat, user) pair. It is
// owned by the session store and removed when the flow completes or the user
// cancels.
type TicketDraft struct {
	TicketID string               `json:"ticket_id,omitempty"`
	Fields   map[DraftStep]string `json:"fields"`
}

// NewTicketDraft returns an empty draft.
func NewTicketDraft() *TicketDraft {
	return &TicketDraft{Fields: make(map[DraftStep]string)}
}

// Set records the raw value supplied for a step.
func (d *TicketDraft) Set(step DraftStep, value string) {
	if d.Fields == nil {
		d.Fields = make(map[DraftStep]string)
	}
	d.Fields[step] = value
}

// ActiveStep returns the first unfilled step in collection order, or ""
// when the draft is complete.
func (d *TicketDraft) ActiveStep() DraftStep {
	for _, step := range collectionOrder {
		if _, ok := d.Fields[step]; !ok {
			return step
		}
	}
	return ""
}

// IsComplete reports whether SUMMARY, PRIORITY and DETAILS are all present.
func (d *TicketDraft) IsComplete() bool {
	return d.ActiveStep() == ""
}
