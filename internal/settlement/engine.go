package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostgram/boostgram/internal/ledger"
	"github.com/boostgram/boostgram/internal/notification"
	"github.com/boostgram/boostgram/internal/orders"
)

const (
	maxAttempts  = 5
	retryBackoff = 10 * time.Millisecond
)

// Engine orchestrates the two money-moving workflows, credit and
// debit-for-order, as atomic units against the ledger store. The balance
// check and the balance write always run against the same wallet snapshot;
// a snapshot invalidated by a concurrent commit is retried fresh, never
// applied stale.
type Engine struct {
	store    ledger.Store
	guard    *Guard
	index    Index
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewEngine builds a settlement engine. A nil index disables read-path
// deduplication, a nil notifier disables event notifications.
func NewEngine(store ledger.Store, index Index, notifier notification.Notifier, logger *slog.Logger) *Engine {
	if index == nil {
		index = NoopIndex{}
	}
	return &Engine{
		store:    store,
		guard:    NewGuard(),
		index:    index,
		notifier: notifier,
		logger:   logger,
	}
}

// CreditInput captures a funds top-up to settle.
type CreditInput struct {
	UserID      string
	Amount      decimal.Decimal
	Description string
	ExternalRef string
	Method      string
}

// CreditResult is the committed outcome of a credit settlement. Replayed marks
// a result resolved from an already settled reference instead of a fresh
// commit; it is per-request state and never cached.
type CreditResult struct {
	Wallet   ledger.Wallet `json:"wallet"`
	Entry    ledger.Entry  `json:"entry"`
	Replayed bool          `json:"-"`
}

// OrderDraft captures an order to create and pay for in one unit.
type OrderDraft struct {
	UserID    string
	Service   string
	Quantity  int64
	TargetURL string
	Price     decimal.Decimal
}

// OrderResult is the committed outcome of a debit-for-order settlement.
type OrderResult struct {
	Order  orders.Order  `json:"order"`
	Wallet ledger.Wallet `json:"wallet"`
	Entry  ledger.Entry  `json:"entry"`
}

// CreditFunds adds funds to the user's wallet and appends the matching credit
// entry atomically. Presenting an already settled external reference returns
// the prior result instead of applying the credit twice.
func (e *Engine) CreditFunds(ctx context.Context, input CreditInput) (CreditResult, error) {
	if !input.Amount.IsPositive() {
		return CreditResult{}, ledger.ErrInvalidAmount
	}

	if input.ExternalRef != "" {
		if prior, ok := e.index.Lookup(ctx, input.ExternalRef); ok {
			prior.Replayed = true
			return prior, nil
		}
	}

	release := e.guard.Acquire(input.UserID)
	defer release()

	var lastErr error = ledger.ErrConflict
	for attempt := 0; attempt < maxAttempts; attempt++ {
		w, err := e.store.GetWallet(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, ledger.ErrUnavailable) {
				lastErr = err
				if err := e.backoff(ctx); err != nil {
					return CreditResult{}, err
				}
				continue
			}
			return CreditResult{}, err
		}

		updated := w
		updated.Balance = w.Balance.Add(input.Amount)
		updated.TotalAdded = w.TotalAdded.Add(input.Amount)
		updated.Version = w.Version + 1
		updated.UpdatedAt = time.Now().UTC()

		entry := ledger.Entry{
			ID:            uuid.NewString(),
			UserID:        input.UserID,
			Kind:          ledger.KindCredit,
			Amount:        input.Amount,
			Description:   input.Description,
			Status:        ledger.StatusCompleted,
			ExternalRef:   input.ExternalRef,
			PaymentMethod: input.Method,
			CreatedAt:     time.Now().UTC(),
		}

		wallet, committed, err := e.store.SettleCredit(ctx, w.Version, updated, entry)
		switch {
		case err == nil:
			result := CreditResult{Wallet: wallet, Entry: committed}
			if input.ExternalRef != "" {
				e.index.Remember(ctx, input.ExternalRef, result)
			}
			e.notify(ctx, notification.KindFundsCredited, input.UserID,
				fmt.Sprintf("%s added to wallet", input.Amount.StringFixed(2)))
			return result, nil
		case errors.Is(err, ledger.ErrDuplicateReference):
			return e.priorCredit(ctx, input)
		case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrUnavailable):
			lastErr = err
			if err := e.backoff(ctx); err != nil {
				return CreditResult{}, err
			}
		default:
			return CreditResult{}, err
		}
	}

	return CreditResult{}, lastErr
}

// DebitForOrder creates the order row, debits its price from the wallet and
// appends the matching debit entry as one committed unit. The balance check
// and the decrement are evaluated against the same snapshot; a concurrent
// commit in between surfaces as a retried conflict, never an overspend.
func (e *Engine) DebitForOrder(ctx context.Context, draft OrderDraft) (OrderResult, error) {
	if !draft.Price.IsPositive() {
		return OrderResult{}, ledger.ErrInvalidAmount
	}
	if draft.Quantity <= 0 {
		return OrderResult{}, ledger.ErrInvalidAmount
	}

	release := e.guard.Acquire(draft.UserID)
	defer release()

	var lastErr error = ledger.ErrConflict
	for attempt := 0; attempt < maxAttempts; attempt++ {
		w, err := e.store.GetWallet(ctx, draft.UserID)
		if err != nil {
			if errors.Is(err, ledger.ErrUnavailable) {
				lastErr = err
				if err := e.backoff(ctx); err != nil {
					return OrderResult{}, err
				}
				continue
			}
			return OrderResult{}, err
		}

		if w.Balance.LessThan(draft.Price) {
			return OrderResult{}, ledger.ErrInsufficientBalance
		}

		updated := w
		updated.Balance = w.Balance.Sub(draft.Price)
		updated.TotalSpent = w.TotalSpent.Add(draft.Price)
		updated.Version = w.Version + 1
		updated.UpdatedAt = time.Now().UTC()

		now := time.Now().UTC()
		order := orders.Order{
			ID:         uuid.NewString(),
			UserID:     draft.UserID,
			Service:    draft.Service,
			Quantity:   draft.Quantity,
			Price:      draft.Price,
			Status:     orders.StatusPending,
			StartCount: 0,
			Remains:    draft.Quantity,
			TargetURL:  draft.TargetURL,
			CreatedAt:  now,
		}
		entry := ledger.Entry{
			ID:          uuid.NewString(),
			UserID:      draft.UserID,
			Kind:        ledger.KindDebit,
			Amount:      draft.Price,
			Description: fmt.Sprintf("%s x %d", draft.Service, draft.Quantity),
			Status:      ledger.StatusCompleted,
			OrderID:     order.ID,
			CreatedAt:   now,
		}

		wallet, committedOrder, committedEntry, err := e.store.SettleDebit(ctx, w.Version, updated, order, entry)
		switch {
		case err == nil:
			e.notify(ctx, notification.KindOrderPlaced, draft.UserID,
				fmt.Sprintf("order %s for %s", committedOrder.ID, draft.Price.StringFixed(2)))
			return OrderResult{Order: committedOrder, Wallet: wallet, Entry: committedEntry}, nil
		case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrUnavailable):
			lastErr = err
			if err := e.backoff(ctx); err != nil {
				return OrderResult{}, err
			}
		default:
			return OrderResult{}, err
		}
	}

	return OrderResult{}, lastErr
}

// RecordDeclinedTopUp appends a failed credit entry for a top-up the payment
// processor denied. The wallet is untouched; only completed entries count
// toward the balance.
func (e *Engine) RecordDeclinedTopUp(ctx context.Context, userID string, amount decimal.Decimal, method, externalRef, description string) (ledger.Entry, error) {
	entry := ledger.Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          ledger.KindCredit,
		Amount:        amount,
		Description:   description,
		Status:        ledger.StatusFailed,
		ExternalRef:   externalRef,
		PaymentMethod: method,
		CreatedAt:     time.Now().UTC(),
	}
	return e.store.AppendEntry(ctx, entry)
}

// Wallet returns the committed wallet snapshot for the user.
func (e *Engine) Wallet(ctx context.Context, userID string) (ledger.Wallet, error) {
	return e.store.GetWallet(ctx, userID)
}

// Entries returns the user's committed ledger entries, newest first.
func (e *Engine) Entries(ctx context.Context, userID string, filter ledger.EntryFilter) ([]ledger.Entry, error) {
	return e.store.ListEntries(ctx, userID, filter)
}

// priorCredit resolves an idempotent replay: the reference already settled, so
// the prior entry and the current wallet are the result. Only completed
// entries qualify; a reference burned by a failed top-up holds the uniqueness
// slot but never credited anything, so reusing it is rejected rather than
// answered with a result that moved no money.
func (e *Engine) priorCredit(ctx context.Context, input CreditInput) (CreditResult, error) {
	prior, err := e.store.EntryByExternalRef(ctx, input.ExternalRef)
	if err != nil {
		return CreditResult{}, err
	}
	if prior.Status != ledger.StatusCompleted {
		return CreditResult{}, ledger.ErrDuplicateReference
	}
	wallet, err := e.store.GetWallet(ctx, input.UserID)
	if err != nil {
		return CreditResult{}, err
	}
	result := CreditResult{Wallet: wallet, Entry: prior}
	e.index.Remember(ctx, input.ExternalRef, result)
	result.Replayed = true
	return result, nil
}

func (e *Engine) backoff(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
		return nil
	}
}

func (e *Engine) notify(ctx context.Context, kind, userID, body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, notification.Message{Kind: kind, Destination: userID, Body: body}); err != nil && e.logger != nil {
		e.logger.Warn("send notification", slog.String("kind", kind), slog.Any("error", err))
	}
}
