package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// memoryManager keeps drafts in process memory. Drafts are stored as copies
// so callers never share mutable state with the store.
type memoryManager struct {
	mu     sync.RWMutex
	drafts map[string]*domain.TicketDraft
}

// NewMemoryManager returns an in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{drafts: make(map[string]*domain.TicketDraft)}
}

func (m *memoryManager) OpenSession(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionKey(chatID, userID)] = domain.NewTicketDraft()
	return nil
}

func (m *memoryManager) GetDraft(_ context.Context, chatID, userID string) (*domain.TicketDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	draft, ok := m.drafts[sessionKey(chatID, userID)]
	if !ok {
		return nil, nil
	}
	return copyDraft(draft), nil
}

func (m *memoryManager) UpdateDraft(_ context.Context, chatID, userID string, draft *domain.TicketDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionKey(chatID, userID)] = copyDraft(draft)
	return nil
}

func (m *memoryManager) CloseSession(_ context.Context, chatID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionKey(chatID, userID))
	return nil
}

func copyDraft(draft *domain.TicketDraft) *domain.TicketDraft {
	raw, err := json.Marshal(draft)
	if err != nil {
		return domain.NewTicketDraft()
	}
	var out domain.TicketDraft
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.NewTicketDraft()
	}
	if out.Fields == nil {
		out.Fields = make(map[domain.DraftStep]string)
	}
	return &out
}
