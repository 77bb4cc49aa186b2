package settlement

import "sync"

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Guard serializes mutating settlement operations per user. Operations for
// different users proceed fully in parallel; within one user's timeline the
// read-modify-write sequence never interleaves. Cross-process safety still
// comes from the store's version check; the guard keeps a single process from
// racing itself into conflict retries.
type Guard struct {
	mu    sync.Mutex
	users map[string]*userLock
}

// NewGuard builds an empty per-user guard.
func NewGuard() *Guard {
	return &Guard{users: make(map[string]*userLock)}
}

// Acquire blocks until the user's critical section is free and returns the
// release function. Locks are reference counted so idle users cost nothing.
func (g *Guard) Acquire(userID string) func() {
	g.mu.Lock()
	l, ok := g.users[userID]
	if !ok {
		l = &userLock{}
		g.users[userID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.users, userID)
		}
		g.mu.Unlock()
	}
}
