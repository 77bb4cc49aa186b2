package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boostgram/boostgram/internal/orders"
)

var (
	// ErrInvalidAmount rejects a non-positive amount before the store is touched.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance occurs when a debit exceeds the wallet's spendable
	// balance. No mutation is applied.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateReference indicates the external payment reference has already
	// been settled. Callers treat the prior result as the outcome.
	ErrDuplicateReference = errors.New("duplicate payment reference")

	// ErrConflict signals a lost optimistic-concurrency race: the wallet version
	// moved between snapshot and write. The caller may retry with fresh data.
	ErrConflict = errors.New("wallet version conflict")

	// ErrWalletNotFound indicates no wallet exists for the user. Wallets are
	// provisioned at signup, so this is a setup fault rather than a transient.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrUnavailable wraps failures of the underlying persistence.
	ErrUnavailable = errors.New("ledger store unavailable")

	// ErrEntryNotFound indicates no ledger entry matches the lookup.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

const (
	// KindCredit marks an entry that adds funds to a wallet.
	KindCredit = "credit"
	// KindDebit marks an entry that spends funds from a wallet.
	KindDebit = "debit"

	// StatusCompleted marks an entry whose settlement committed.
	StatusCompleted = "completed"
	// StatusFailed marks an entry recorded for a settlement that was denied
	// before any balance change, e.g. a declined gateway authorization.
	StatusFailed = "failed"
)

// Wallet is the snapshot of a user's prepaid balance. The version counter
// is the optimistic-concurrency token: every committed mutation increments
// it, and CompareAndSwapWallet refuses writes against a stale version.
//
// Invariant: Balance equals TotalAdded minus TotalSpent whenever no
// settlement is in flight.
type Wallet struct {
	UserID     string
	Balance    decimal.Decimal
	TotalAdded decimal.Decimal
	TotalSpent decimal.Decimal
	Version    int64
	UpdatedAt  time.Time
}

// Entry is one immutable monetary event against a wallet. Amount carries the
// positive magnitude; the sign is implied by Kind. Entries are written only
// after the outcome is known, so there is no pending state.
type Entry struct {
	ID            string
	UserID        string
	Kind          string
	Amount        decimal.Decimal
	Description   string
	Status        string
	ExternalRef   string
	PaymentMethod string
	OrderID       string
	CreatedAt     time.Time
}

// EntryFilter narrows ListEntries results. Zero values mean no filtering.
type EntryFilter struct {
	Kind   string
	Status string
	Limit  int
}

// Store is the durable record of wallets and their append-only entries.
// CompareAndSwapWallet is the sole wallet mutation path; SettleCredit and
// SettleDebit compose it with the matching entry (and order row) so that a
// settlement commits as one atomic unit or not at all.
type Store interface {
	CreateWallet(ctx context.Context, userID string) (Wallet, error)
	GetWallet(ctx context.Context, userID string) (Wallet, error)
	CompareAndSwapWallet(ctx context.Context, expectedVersion int64, w Wallet) error
	AppendEntry(ctx context.Context, e Entry) (Entry, error)
	EntryByExternalRef(ctx context.Context, externalRef string) (Entry, error)
	ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]Entry, error)
	SettleCredit(ctx context.Context, expectedVersion int64, w Wallet, e Entry) (Wallet, Entry, error)
	SettleDebit(ctx context.Context, expectedVersion int64, w Wallet, o orders.Order, e Entry) (Wallet, orders.Order, Entry, error)
}

// OrderWriter persists the order row created by a debit settlement. The
// in-memory store delegates to it; the Postgres store writes the row inside
// its own transaction instead.
type OrderWriter interface {
	Insert(ctx context.Context, o orders.Order) error
}
