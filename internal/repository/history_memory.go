package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type memoryHistoryRepository struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Exchange
}

// NewMemoryConversationHistoryRepository returns an in-memory implementation.
func NewMemoryConversationHistoryRepository() ConversationHistoryRepository {
	return &memoryHistoryRepository{sessions: make(map[string][]domain.Exchange)}
}

func historyKey(chatID, userID string) string {
	return chatID + "|" + userID
}

func (r *memoryHistoryRepository) FindRecent(_ context.Context, chatID, userID string, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sessions[historyKey(chatID, userID)]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	result := make([]domain.Exchange, len(all))
	copy(result, all)
	return result, nil
}

func (r *memoryHistoryRepository) Append(_ context.Context, exchange domain.Exchange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now()
	}
	key := historyKey(exchange.ChatID, exchange.UserID)
	r.sessions[key] = append(r.sessions[key], exchange)
	return nil
}
