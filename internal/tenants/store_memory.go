package tenants

import (
	"context"
	"sync"
)

// MemoryStore keeps tenants in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[int64]Tenant
}

// NewMemoryStore constructs a MemoryStore seeded with the given tenants.
func NewMemoryStore(seed ...Tenant) *MemoryStore {
	s := &MemoryStore{byID: make(map[int64]Tenant)}
	for _, t := range seed {
		s.byID[t.ID] = t
	}
	return s
}

// Put inserts or replaces a tenant.
func (s *MemoryStore) Put(t Tenant) {
	s.mu.Lock()
	s.byID[t.ID] = t
	s.mu.Unlock()
}

// Get returns a tenant by ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (Tenant, error) {
	if err := ctx.Err(); err != nil {
		return Tenant{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}
