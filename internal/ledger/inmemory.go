package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/boostgram/boostgram/internal/orders"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]Wallet
	entries []Entry
	byRef   map[string]Entry
	orders  OrderWriter
}

// NewInMemory creates a concurrency-safe in-memory store used in tests and
// dev mode. Order rows produced by debit settlements are written through the
// provided sink; a nil sink drops them.
func NewInMemory(orderSink OrderWriter) Store {
	return &inMemoryStore{
		wallets: make(map[string]Wallet),
		byRef:   make(map[string]Entry),
		orders:  orderSink,
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, userID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, exists := s.wallets[userID]; exists {
		return w, nil
	}
	w := Wallet{UserID: userID, Version: 1}
	s.wallets[userID] = w
	return w, nil
}

func (s *inMemoryStore) GetWallet(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, exists := s.wallets[userID]
	if !exists {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *inMemoryStore) CompareAndSwapWallet(_ context.Context, expectedVersion int64, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.casLocked(expectedVersion, w)
}

func (s *inMemoryStore) AppendEntry(_ context.Context, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *inMemoryStore) EntryByExternalRef(_ context.Context, externalRef string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, exists := s.byRef[externalRef]
	if !exists {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (s *inMemoryStore) ListEntries(_ context.Context, userID string, filter EntryFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *inMemoryStore) SettleCredit(_ context.Context, expectedVersion int64, w Wallet, e Entry) (Wallet, Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate check first so a replayed reference never consumes the version.
	if e.ExternalRef != "" {
		if _, exists := s.byRef[e.ExternalRef]; exists {
			return Wallet{}, Entry{}, ErrDuplicateReference
		}
	}
	if err := s.casLocked(expectedVersion, w); err != nil {
		return Wallet{}, Entry{}, err
	}
	if err := s.appendLocked(e); err != nil {
		return Wallet{}, Entry{}, err
	}
	return w, e, nil
}

func (s *inMemoryStore) SettleDebit(ctx context.Context, expectedVersion int64, w Wallet, o orders.Order, e Entry) (Wallet, orders.Order, Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.casLocked(expectedVersion, w); err != nil {
		return Wallet{}, orders.Order{}, Entry{}, err
	}
	if err := s.appendLocked(e); err != nil {
		return Wallet{}, orders.Order{}, Entry{}, err
	}
	if s.orders != nil {
		if err := s.orders.Insert(ctx, o); err != nil {
			return Wallet{}, orders.Order{}, Entry{}, err
		}
	}
	return w, o, e, nil
}

func (s *inMemoryStore) casLocked(expectedVersion int64, w Wallet) error {
	current, exists := s.wallets[w.UserID]
	if !exists {
		return ErrWalletNotFound
	}
	if current.Version != expectedVersion {
		return ErrConflict
	}
	s.wallets[w.UserID] = w
	return nil
}

func (s *inMemoryStore) appendLocked(e Entry) error {
	if e.ExternalRef != "" {
		if _, exists := s.byRef[e.ExternalRef]; exists {
			return ErrDuplicateReference
		}
		s.byRef[e.ExternalRef] = e
	}
	s.entries = append(s.entries, e)
	return nil
}
