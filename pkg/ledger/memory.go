package ledger

import (
	"context"
	"sync"
)

// maxMemoryEvents bounds the in-memory event trail.
const maxMemoryEvents = 1000

// MemoryStore keeps the ledger in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	hours  map[string]int
	order  []string
	events []Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hours: make(map[string]int)}
}

func (m *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, len(m.order))
	for _, name := range m.order {
		entries = append(entries, Entry{Name: name, Hours: m.hours[name]})
	}
	return entries, nil
}

func (m *MemoryStore) Put(ctx context.Context, entry Entry, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.hours[entry.Name]; !exists {
		m.order = append(m.order, entry.Name)
	}
	m.hours[entry.Name] = entry.Hours
	m.appendEvent(evt)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, name string, evt Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.hours[name]; !exists {
		return false, nil
	}
	delete(m.hours, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.appendEvent(evt)
	return true, nil
}

func (m *MemoryStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, 0, min(limit, len(m.events)))
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) appendEvent(evt Event) {
	m.events = append(m.events, evt)
	if len(m.events) > maxMemoryEvents {
		m.events = m.events[len(m.events)-maxMemoryEvents:]
	}
}
