package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/bot"
)

// Sequencer preserves arrival order per (chat, user) while letting distinct
// sessions proceed concurrently: one lane goroutine with a bounded queue per
// sequence key. The ticket workflow's step sequence depends on this
// ordering.
type Sequencer struct {
	mu      sync.Mutex
	lanes   map[string]chan bot.Update
	wg      sync.WaitGroup
	route   func(context.Context, bot.Update)
	queue   int
	closed  bool
	baseCtx context.Context
	logger  *zap.Logger
}

// NewSequencer constructs a sequencer feeding route. queue bounds each
// lane's buffer; enqueueing into a full lane blocks rather than reorders.
func NewSequencer(ctx context.Context, route func(context.Context, bot.Update), queue int, logger *zap.Logger) *Sequencer {
	if queue <= 0 {
		queue = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		lanes:   make(map[string]chan bot.Update),
		route:   route,
		queue:   queue,
		baseCtx: ctx,
		logger:  logger,
	}
}

// Enqueue hands one update to its session lane, creating the lane on first
// use. Updates for a closed sequencer are dropped with a warning.
func (s *Sequencer) Enqueue(upd bot.Update) {
	key := upd.SequenceKey()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("sequencer closed; dropping update", zap.String("key", key))
		return
	}
	lane, ok := s.lanes[key]
	if !ok {
		lane = make(chan bot.Update, s.queue)
		s.lanes[key] = lane
		s.wg.Add(1)
		go s.drain(key, lane)
	}
	s.mu.Unlock()

	lane <- upd
}

func (s *Sequencer) drain(key string, lane chan bot.Update) {
	defer s.wg.Done()
	for upd := range lane {
		s.route(s.baseCtx, upd)
	}
	s.logger.Debug("lane drained", zap.String("key", key))
}

// Close stops accepting updates and waits for all lanes to drain. Callers
// must stop the update source before closing; Enqueue after Close panics on
// the closed lane otherwise.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, lane := range s.lanes {
		close(lane)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
