package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryRepository serves the catalog from memory, seeded with the standard
// storefront services. Used in tests and dev mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewMemoryRepository builds an in-memory catalog with the default services.
func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{services: make(map[string]Service)}
	for _, svc := range defaultServices() {
		r.services[svc.ID] = svc
	}
	return r
}

// ListActive returns orderable services grouped by category then name.
func (r *MemoryRepository) ListActive(_ context.Context) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Service
	for _, svc := range r.services {
		if svc.Active {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get fetches a single service by identifier.
func (r *MemoryRepository) Get(_ context.Context, id string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok {
		return Service{}, ErrNotFound
	}
	return svc, nil
}

// Put inserts or replaces a service. Test helper.
func (r *MemoryRepository) Put(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
}

func defaultServices() []Service {
	rate := decimal.RequireFromString
	return []Service{
		{ID: "ig-followers", Name: "Instagram Followers", Category: "Instagram", Price: rate("0.025"), MinQuantity: 100, MaxQuantity: 10000, Active: true},
		{ID: "ig-likes", Name: "Instagram Likes", Category: "Instagram", Price: rate("0.015"), MinQuantity: 50, MaxQuantity: 5000, Active: true},
		{ID: "yt-views", Name: "YouTube Views", Category: "YouTube", Price: rate("0.003"), MinQuantity: 1000, MaxQuantity: 100000, Active: true},
		{ID: "yt-likes", Name: "YouTube Likes", Category: "YouTube", Price: rate("0.02"), MinQuantity: 50, MaxQuantity: 2000, Active: true},
		{ID: "tiktok-views", Name: "TikTok Views", Category: "TikTok", Price: rate("0.0035"), MinQuantity: 1000, MaxQuantity: 50000, Active: true},
		{ID: "twitter-followers", Name: "Twitter Followers", Category: "Twitter", Price: rate("0.03"), MinQuantity: 100, MaxQuantity: 5000, Active: true},
	}
}
