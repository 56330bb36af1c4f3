package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

const (
	// DefaultCapacity bounds the per-session message buffer.
	DefaultCapacity = 20
	minCapacity     = 2
)

// HistoryReader is the read-only slice of conversation history the cache
// seeds from.
type HistoryReader interface {
	FindRecent(ctx context.Context, chatID, userID string, limit int) ([]domain.Exchange, error)
}

// ContextCache gives the relay handler short-term memory: a bounded,
// lazily-seeded message buffer per (chat, user) session. Seeding happens
// exactly once per entry; a failed seed degrades to an empty buffer because
// a cold cache must never block conversation.
type ContextCache struct {
	mu       sync.Mutex
	sessions map[string]*contextSession
	capacity int
	history  HistoryReader
	logger   *zap.Logger
}

type contextSession struct {
	mu       sync.Mutex
	seeded   bool
	messages []domain.ConversationMessage
}

// NewContextCache constructs a cache with the given capacity; values below
// the floor are raised to it.
func NewContextCache(history HistoryReader, capacity int, logger *zap.Logger) *ContextCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity < minCapacity {
		capacity = minCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextCache{
		sessions: make(map[string]*contextSession),
		capacity: capacity,
		history:  history,
		logger:   logger,
	}
}

// BuildRequestMessages returns a snapshot of the cached messages with the
// pending user message appended. The cache itself is not mutated.
func (c *ContextCache) BuildRequestMessages(ctx context.Context, chatID, userID, userText string) []domain.ConversationMessage {
	s := c.session(chatID, userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.seedLocked(ctx, s, chatID, userID)

	result := make([]domain.ConversationMessage, 0, len(s.messages)+1)
	result = append(result, s.messages...)
	result = append(result, domain.ConversationMessage{
		Role:      domain.RoleUser,
		Content:   userText,
		Timestamp: time.Now(),
	})
	return result
}

// RecordExchange appends the completed user/assistant turn, evicting the
// oldest half-turns when the buffer exceeds capacity. Eviction is strict
// FIFO and may split a pair; that trade-off is accepted.
func (c *ContextCache) RecordExchange(ctx context.Context, chatID, userID, userText, assistantReply string) {
	s := c.session(chatID, userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.seedLocked(ctx, s, chatID, userID)

	now := time.Now()
	s.messages = append(s.messages,
		domain.ConversationMessage{Role: domain.RoleUser, Content: userText, Timestamp: now},
		domain.ConversationMessage{Role: domain.RoleAssistant, Content: assistantReply, Timestamp: now},
	)
	if over := len(s.messages) - c.capacity; over > 0 {
		s.messages = append([]domain.ConversationMessage(nil), s.messages[over:]...)
	}
}

// Reset drops the cached session so the next access re-seeds from storage.
func (c *ContextCache) Reset(chatID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, cacheKey(chatID, userID))
}

// session returns the entry for the pair, creating it when absent. Entry
// creation is serialized by the map mutex; all buffer access is serialized
// by the per-session mutex so distinct sessions never block each other.
func (c *ContextCache) session(chatID, userID string) *contextSession {
	key := cacheKey(chatID, userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		s = &contextSession{}
		c.sessions[key] = s
	}
	return s
}

// seedLocked populates the buffer from persisted history on first access.
// The caller holds the session mutex. Failures are logged and swallowed.
func (c *ContextCache) seedLocked(ctx context.Context, s *contextSession, chatID, userID string) {
	if s.seeded {
		return
	}
	s.seeded = true
	if c.history == nil {
		return
	}

	exchanges, err := c.history.FindRecent(ctx, chatID, userID, c.capacity/2)
	if err != nil {
		c.logger.Warn("conversation seed failed; starting with empty context",
			zap.String("chat_id", chatID),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	for _, ex := range exchanges {
		if ex.RequestText != "" {
			s.messages = append(s.messages, domain.ConversationMessage{
				Role:      domain.RoleUser,
				Content:   ex.RequestText,
				Timestamp: ex.CreatedAt,
			})
		}
		if ex.ReplyText != "" {
			s.messages = append(s.messages, domain.ConversationMessage{
				Role:      domain.RoleAssistant,
				Content:   ex.ReplyText,
				Timestamp: ex.CreatedAt,
			})
		}
	}
	if over := len(s.messages) - c.capacity; over > 0 {
		s.messages = s.messages[over:]
	}
}

func cacheKey(chatID, userID string) string {
	return chatID + "|" + userID
}
