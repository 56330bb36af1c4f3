package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters for the dispatch loop and the
// admin HTTP surface.
type Metrics struct {
	mu       sync.Mutex
	updates  map[string]int64
	commands map[string]int64
	modules  map[string]int64
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		updates:  make(map[string]int64),
		commands: make(map[string]int64),
		modules:  make(map[string]int64),
		errors:   make(map[string]int64),
	}
}

// RecordUpdate counts one inbound update by outcome
// (command, module, skipped, dropped).
func (m *Metrics) RecordUpdate(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates[outcome]++
}

// RecordCommand counts one executed command by name.
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[name]++
}

// RecordModule counts one update claimed by a handler module.
func (m *Metrics) RecordModule(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[name]++
}

// RecordError counts one handler failure by stage and error code.
func (m *Metrics) RecordError(stage, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[stage+"|"+code]++
}

// Snapshot returns a copy of all counters for the stats endpoint.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]map[string]int64{
		"updates":  copyCounters(m.updates),
		"commands": copyCounters(m.commands),
		"modules":  copyCounters(m.modules),
		"errors":   copyCounters(m.errors),
	}
}

func copyCounters(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
