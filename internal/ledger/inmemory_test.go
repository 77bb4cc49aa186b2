package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostgram/boostgram/internal/orders"
)

func newEntry(userID, kind, amount, ref string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Amount:      decimal.RequireFromString(amount),
		Status:      StatusCompleted,
		ExternalRef: ref,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestCreateWalletIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(nil)
	userID := uuid.NewString()

	w1, err := store.CreateWallet(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if !w1.Balance.IsZero() || w1.Version != 1 {
		t.Fatalf("unexpected fresh wallet: %+v", w1)
	}

	SeedWallet(store, userID, decimal.RequireFromString("42"))
	w2, err := store.CreateWallet(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet again: %v", err)
	}
	if !w2.Balance.Equal(decimal.RequireFromString("42")) {
		t.Fatalf("second create must not reset the wallet, got balance %s", w2.Balance)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	store := NewInMemory(nil)
	if _, err := store.GetWallet(context.Background(), uuid.NewString()); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestCompareAndSwapWalletDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(nil)
	userID := uuid.NewString()
	w, err := store.CreateWallet(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	updated := w
	updated.Balance = decimal.RequireFromString("10")
	updated.TotalAdded = decimal.RequireFromString("10")
	updated.Version = w.Version + 1
	if err := store.CompareAndSwapWallet(ctx, w.Version, updated); err != nil {
		t.Fatalf("first swap: %v", err)
	}

	// A second writer holding the original snapshot must lose, not overwrite.
	stale := w
	stale.Balance = decimal.RequireFromString("999")
	stale.Version = w.Version + 1
	if err := store.CompareAndSwapWallet(ctx, w.Version, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	current, err := store.GetWallet(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !current.Balance.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("stale swap applied, balance %s", current.Balance)
	}
}

func TestAppendEntryRejectsDuplicateReference(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(nil)
	userID := uuid.NewString()

	if _, err := store.AppendEntry(ctx, newEntry(userID, KindCredit, "100", "PP_1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.AppendEntry(ctx, newEntry(userID, KindCredit, "100", "PP_1")); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}

	// Entries without references never collide.
	if _, err := store.AppendEntry(ctx, newEntry(userID, KindCredit, "5", "")); err != nil {
		t.Fatalf("append without ref: %v", err)
	}
	if _, err := store.AppendEntry(ctx, newEntry(userID, KindCredit, "5", "")); err != nil {
		t.Fatalf("second append without ref: %v", err)
	}
}

func TestSettleCreditDuplicateLeavesWalletUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(nil)
	userID := uuid.NewString()
	w, _ := store.CreateWallet(ctx, userID)

	credit := func(snapshot Wallet, ref string) error {
		updated := snapshot
		updated.Balance = snapshot.Balance.Add(decimal.RequireFromString("100"))
		updated.TotalAdded = snapshot.TotalAdded.Add(decimal.RequireFromString("100"))
		updated.Version = snapshot.Version + 1
		_, _, err := store.SettleCredit(ctx, snapshot.Version, updated, newEntry(userID, KindCredit, "100", ref))
		return err
	}

	if err := credit(w, "PP_9"); err != nil {
		t.Fatalf("settle credit: %v", err)
	}
	after, _ := store.GetWallet(ctx, userID)
	if err := credit(after, "PP_9"); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}

	final, _ := store.GetWallet(ctx, userID)
	if !final.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("replay mutated wallet, balance %s", final.Balance)
	}
	if final.Version != after.Version {
		t.Fatalf("replay consumed version: %d != %d", final.Version, after.Version)
	}
}

func TestSettleDebitWritesOrderThroughSink(t *testing.T) {
	ctx := context.Background()
	ordersRepo := orders.NewMemoryRepository()
	store := NewInMemory(ordersRepo)
	userID := uuid.NewString()
	SeedWallet(store, userID, decimal.RequireFromString("50"))
	w, _ := store.GetWallet(ctx, userID)

	updated := w
	updated.Balance = w.Balance.Sub(decimal.RequireFromString("25"))
	updated.TotalSpent = w.TotalSpent.Add(decimal.RequireFromString("25"))
	updated.Version = w.Version + 1

	order := orders.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Service:   "Instagram Followers",
		Quantity:  1000,
		Price:     decimal.RequireFromString("25"),
		Status:    orders.StatusPending,
		Remains:   1000,
		CreatedAt: time.Now().UTC(),
	}
	entry := newEntry(userID, KindDebit, "25", "")
	entry.OrderID = order.ID

	if _, _, _, err := store.SettleDebit(ctx, w.Version, updated, order, entry); err != nil {
		t.Fatalf("settle debit: %v", err)
	}

	stored, err := ordersRepo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.Status != orders.StatusPending || stored.Remains != 1000 {
		t.Fatalf("unexpected stored order: %+v", stored)
	}
}

func TestListEntriesNewestFirstWithFilters(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory(nil)
	userID := uuid.NewString()

	base := time.Now().UTC()
	for i, tc := range []struct {
		kind, status string
	}{
		{KindCredit, StatusCompleted},
		{KindDebit, StatusCompleted},
		{KindCredit, StatusFailed},
	} {
		e := newEntry(userID, tc.kind, "10", "")
		e.Status = tc.status
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if _, err := store.AppendEntry(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := store.ListEntries(ctx, userID, EntryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatal("entries not ordered newest first")
		}
	}

	credits, err := store.ListEntries(ctx, userID, EntryFilter{Kind: KindCredit, Status: StatusCompleted})
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if len(credits) != 1 {
		t.Fatalf("expected 1 completed credit, got %d", len(credits))
	}

	limited, err := store.ListEntries(ctx, userID, EntryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(limited))
	}
}
