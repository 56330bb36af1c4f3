package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// ErrNotFound is returned by repositories when a row is absent.
var ErrNotFound = pgx.ErrNoRows

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	CreateDraft(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context, limit int) ([]domain.Ticket, error)
	Save(ctx context.Context, ticket *domain.Ticket) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) CreateDraft(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (status, priority, summary, details, created_by, assignee)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Summary,
		ticket.Details,
		ticket.CreatedBy,
		ticket.Assignee,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, status, priority, summary, details, created_by, assignee, created_at, updated_at
        FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Summary,
		&ticket.Details,
		&ticket.CreatedBy,
		&ticket.Assignee,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByCreator(ctx context.Context, userID string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, status, priority, summary, details, created_by, assignee, created_at, updated_at
        FROM tickets WHERE created_by=$1 ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, status, priority, summary, details, created_by, assignee, created_at, updated_at
        FROM tickets ORDER BY id ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, summary=$3, details=$4, assignee=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Summary,
		ticket.Details,
		ticket.Assignee,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Status,
			&ticket.Priority,
			&ticket.Summary,
			&ticket.Details,
			&ticket.CreatedBy,
			&ticket.Assignee,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
