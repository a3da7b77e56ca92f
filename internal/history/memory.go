package history

import (
	"context"
	"sync"
)

// MemoryStore keeps history in process memory. Lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	results []Result
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds r to the end of the history.
func (m *MemoryStore) Append(_ context.Context, r Result) error {
	m.mu.Lock()
	m.results = append(m.results, r)
	m.mu.Unlock()
	return nil
}

// List returns a snapshot of matching results.
func (m *MemoryStore) List(_ context.Context, f Filter) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Result
	for _, r := range m.results {
		if f.match(r) {
			out = append(out, r)
		}
	}
	out = tail(out, f.Limit)
	// detach from the backing array so later appends never alias
	return append([]Result(nil), out...), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
