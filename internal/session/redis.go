package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util"
)

const redisKeyPrefix = "ticket_session:"

// redisManager stores drafts in Redis so they survive process restarts.
type redisManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisManager returns a Redis-backed Manager. A zero ttl keeps drafts
// until explicitly closed.
func NewRedisManager(client *redis.Client, ttl time.Duration) Manager {
	return &redisManager{client: client, ttl: ttl}
}

func (m *redisManager) key(chatID, userID string) string {
	return redisKeyPrefix + sessionKey(chatID, userID)
}

func (m *redisManager) OpenSession(ctx context.Context, chatID, userID string) error {
	return m.put(ctx, chatID, userID, domain.NewTicketDraft())
}

func (m *redisManager) GetDraft(ctx context.Context, chatID, userID string) (*domain.TicketDraft, error) {
	raw, err := m.client.Get(ctx, m.key(chatID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load ticket session", err)
	}
	var draft domain.TicketDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, apperrors.NewPersistenceError("corrupt ticket session", err)
	}
	return &draft, nil
}

func (m *redisManager) UpdateDraft(ctx context.Context, chatID, userID string, draft *domain.TicketDraft) error {
	return m.put(ctx, chatID, userID, draft)
}

func (m *redisManager) CloseSession(ctx context.Context, chatID, userID string) error {
	if err := m.client.Del(ctx, m.key(chatID, userID)).Err(); err != nil {
		return apperrors.NewPersistenceError("failed to close ticket session", err)
	}
	return nil
}

func (m *redisManager) put(ctx context.Context, chatID, userID string, draft *domain.TicketDraft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return apperrors.NewPersistenceError("failed to encode ticket session", err)
	}
	if err := m.client.Set(ctx, m.key(chatID, userID), raw, m.ttl).Err(); err != nil {
		return apperrors.NewPersistenceError("failed to store ticket session", err)
	}
	return nil
}
