package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// ConversationHistoryRepository persists request/reply pairs. The context
// cache only ever reads; the relay appends best-effort after each turn.
type ConversationHistoryRepository interface {
	// FindRecent returns up to limit exchanges for the session, ordered
	// oldest to newest.
	FindRecent(ctx context.Context, chatID, userID string, limit int) ([]domain.Exchange, error)
	Append(ctx context.Context, exchange domain.Exchange) error
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewConversationHistoryRepository returns the Postgres-backed implementation.
func NewConversationHistoryRepository(pool *pgxpool.Pool) ConversationHistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) FindRecent(ctx context.Context, chatID, userID string, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}
	const query = `
        SELECT chat_id, user_id, request_text, reply_text, created_at
        FROM conversation_history
        WHERE chat_id=$1 AND user_id=$2
        ORDER BY created_at DESC, id DESC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, chatID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var newestFirst []domain.Exchange
	for rows.Next() {
		var ex domain.Exchange
		if err := rows.Scan(&ex.ChatID, &ex.UserID, &ex.RequestText, &ex.ReplyText, &ex.CreatedAt); err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	result := make([]domain.Exchange, len(newestFirst))
	for i, ex := range newestFirst {
		result[len(newestFirst)-1-i] = ex
	}
	return result, nil
}

func (r *historyRepository) Append(ctx context.Context, exchange domain.Exchange) error {
	const query = `
        INSERT INTO conversation_history (chat_id, user_id, request_text, reply_text)
        VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query,
		exchange.ChatID,
		exchange.UserID,
		exchange.RequestText,
		exchange.ReplyText,
	)
	return err
}
