package orders

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory order store used in tests and dev mode. It
// also serves as the order sink for the in-memory settlement store, which
// inserts rows through it while holding its own lock.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]Order)}
}

// Insert stores a new order row.
func (r *MemoryRepository) Insert(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

// Get fetches a single order by identifier.
func (r *MemoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateProgress records fulfilment state for an order.
func (r *MemoryRepository) UpdateProgress(_ context.Context, id, status string, startCount, remains int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.StartCount = startCount
	o.Remains = remains
	r.orders[id] = o
	return nil
}
