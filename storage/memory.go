// Package storage provides core.LeadStore implementations: a volatile
// in-memory store for tests and demos, and an SQLite-backed log under
// storage/sqlite for durable append-only persistence.
package storage

import (
	"context"
	"sync"

	"github.com/leadflow/leadflow/core"
)

// InMemoryStore keeps lead records in process memory. Safe for concurrent
// use; best suited for tests and ephemeral runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	recs []core.LeadRecord
}

var _ core.LeadStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory lead store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append implements core.LeadStore.
func (s *InMemoryStore) Append(_ context.Context, rec core.LeadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

// Records returns a copy of all appended records in insertion order.
func (s *InMemoryStore) Records() []core.LeadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.LeadRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
