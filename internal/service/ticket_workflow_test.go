package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/session"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

type countingTicketRepo struct {
	repository.TicketRepository
	saves int
}

func (r *countingTicketRepo) Save(ctx context.Context, ticket *domain.Ticket) error {
	r.saves++
	return r.TicketRepository.Save(ctx, ticket)
}

func newTestWorkflow(t *testing.T) (*TicketWorkflow, *countingTicketRepo) {
	t.Helper()
	repo := &countingTicketRepo{TicketRepository: repository.NewMemoryTicketRepository()}
	workflow := NewTicketWorkflow(TicketWorkflowDependencies{
		TicketRepo: repo,
		Sessions:   session.NewMemoryManager(),
		Logger:     zap.NewNop(),
	})
	return workflow, repo
}

func TestTicketWorkflow_CaptureScenario(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	assert.False(t, workflow.HasActiveDraft(ctx, "10", "alice"))

	ticket, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.True(t, workflow.HasActiveDraft(ctx, "10", "alice"))

	step, err := workflow.ActiveStep(ctx, "10", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepSummary, step)

	ticket, err = workflow.CollectTicketField(ctx, "10", "alice", "printer down")
	require.NoError(t, err)
	assert.Equal(t, "printer down", ticket.Summary)

	step, err = workflow.ActiveStep(ctx, "10", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPriority, step)

	ticket, err = workflow.CollectTicketField(ctx, "10", "alice", "urgent")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)

	step, err = workflow.ActiveStep(ctx, "10", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepDetails, step)

	ticket, err = workflow.CollectTicketField(ctx, "10", "alice", "won't power on")
	require.NoError(t, err)
	assert.Equal(t, "won't power on", ticket.Details)

	// Completion closes the session but keeps the ticket open.
	assert.False(t, workflow.HasActiveDraft(ctx, "10", "alice"))
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
}

func TestTicketWorkflow_StartConflictsWithOpenDraft(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	_, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)

	_, err = workflow.StartTicketCreation(ctx, "10", "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	// Other sessions are unaffected.
	_, err = workflow.StartTicketCreation(ctx, "11", "alice")
	assert.NoError(t, err)
	_, err = workflow.StartTicketCreation(ctx, "10", "bob")
	assert.NoError(t, err)
}

func TestTicketWorkflow_CollectWithoutDraft(t *testing.T) {
	workflow, _ := newTestWorkflow(t)

	_, err := workflow.CollectTicketField(context.Background(), "10", "alice", "text")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestTicketWorkflow_UnknownPriorityNeverSaves(t *testing.T) {
	ctx := context.Background()
	workflow, repo := newTestWorkflow(t)

	_, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)
	_, err = workflow.CollectTicketField(ctx, "10", "alice", "summary text")
	require.NoError(t, err)

	savesBefore := repo.saves
	_, err = workflow.CollectTicketField(ctx, "10", "alice", "asap")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "asap")
	assert.Equal(t, savesBefore, repo.saves, "rejected input must not be persisted")

	// Draft still waits on PRIORITY.
	step, err := workflow.ActiveStep(ctx, "10", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPriority, step)

	// Priority accepts any casing.
	ticket, err := workflow.CollectTicketField(ctx, "10", "alice", "High")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
}

func TestTicketWorkflow_EmptyFieldRejected(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	_, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)

	_, err = workflow.CollectTicketField(ctx, "10", "alice", "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	step, err := workflow.ActiveStep(ctx, "10", "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepSummary, step)
}

func TestTicketWorkflow_GetTicketAccess(t *testing.T) {
	ctx := context.Background()
	workflow, repo := newTestWorkflow(t)

	created, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)

	// Absent ticket and denied ticket are indistinguishable.
	missing, err := workflow.GetTicket(ctx, "no-such-id", "alice")
	require.NoError(t, err)
	denied, err := workflow.GetTicket(ctx, created.ID, "mallory")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Nil(t, denied)

	got, err := workflow.GetTicket(ctx, created.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	// The assignee gets access too.
	assignee := "bob"
	created.Assignee = &assignee
	require.NoError(t, repo.Save(ctx, created))

	got, err = workflow.GetTicket(ctx, created.ID, "bob")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestTicketWorkflow_CloseTicket(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	created, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)

	_, err = workflow.CloseTicket(ctx, "no-such-id", "alice", "done")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = workflow.CloseTicket(ctx, created.ID, "mallory", "done")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	closed, err := workflow.CloseTicket(ctx, created.ID, "alice", "replaced cable")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.Contains(t, closed.Details, "\nResolution: replaced cable")

	// Closing twice appends a second resolution line; there is no guard.
	closed, err = workflow.CloseTicket(ctx, created.ID, "alice", "confirmed fixed")
	require.NoError(t, err)
	assert.Contains(t, closed.Details, "\nResolution: replaced cable")
	assert.Contains(t, closed.Details, "\nResolution: confirmed fixed")
}

func TestTicketWorkflow_ListTicketsForUser(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	first, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)
	require.NoError(t, workflow.CancelTicketCreation(ctx, "10", "alice"))
	second, err := workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)
	_, err = workflow.StartTicketCreation(ctx, "10", "bob")
	require.NoError(t, err)

	tickets, err := workflow.ListTicketsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	ids := []string{tickets[0].ID, tickets[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
	assert.Less(t, tickets[0].ID, tickets[1].ID, "listing is id ascending")
}

func TestTicketWorkflow_Cancel(t *testing.T) {
	ctx := context.Background()
	workflow, _ := newTestWorkflow(t)

	err := workflow.CancelTicketCreation(ctx, "10", "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = workflow.StartTicketCreation(ctx, "10", "alice")
	require.NoError(t, err)
	require.NoError(t, workflow.CancelTicketCreation(ctx, "10", "alice"))
	assert.False(t, workflow.HasActiveDraft(ctx, "10", "alice"))
}
