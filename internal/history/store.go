// Package history persists the recent-search list between runs.
package history

import (
	"context"
	"sync"

	"github.com/seenimoa/tickerlens/pkg/models"
)

// Store loads and saves the whole recent-search list. It does not enforce
// the list invariants; models.History does.
type Store interface {
	Load(ctx context.Context) (models.History, error)
	Save(ctx context.Context, h models.History) error
	Close() error
}

// MemoryStore keeps the list in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items models.History
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (models.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(models.History, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, h models.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(models.History, len(h))
	copy(m.items, h)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
