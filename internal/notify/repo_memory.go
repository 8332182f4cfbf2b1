package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores notifications in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  []Notification
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Create stores a notification.
func (r *MemoryRepo) Create(ctx context.Context, n Notification) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.items = append(r.items, n)
	return n.ID, nil
}

// ListForUser returns a user's notifications newest first.
func (r *MemoryRepo) ListForUser(ctx context.Context, tenantID int64, userID string, limit int) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Notification
	for _, n := range r.items {
		if n.TenantID == tenantID && n.UserID == userID {
			out = append(out, n)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
