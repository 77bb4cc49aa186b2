package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepository stores users in memory for tests and dev mode.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]User
}

// NewMemoryRepository builds an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byEmail: make(map[string]User)}
}

// Create inserts a new user.
func (r *MemoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrEmailTaken
	}
	r.byEmail[key] = user
	return nil
}

// FindByEmail fetches a user by email address.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, exists := r.byEmail[strings.ToLower(email)]
	if !exists {
		return User{}, ErrNotFound
	}
	return user, nil
}
