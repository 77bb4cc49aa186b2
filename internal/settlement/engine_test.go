package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boostgram/boostgram/internal/ledger"
	"github.com/boostgram/boostgram/internal/logging"
	"github.com/boostgram/boostgram/internal/orders"
)

func newTestEngine(t *testing.T) (*Engine, ledger.Store, *orders.MemoryRepository, string) {
	t.Helper()
	ordersRepo := orders.NewMemoryRepository()
	store := ledger.NewInMemory(ordersRepo)
	engine := NewEngine(store, NoopIndex{}, nil, logging.Discard())

	userID := uuid.NewString()
	if _, err := store.CreateWallet(context.Background(), userID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return engine, store, ordersRepo, userID
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// checkIdentity asserts balance == total_added - total_spent and that the
// committed entries sum to the balance.
func checkIdentity(t *testing.T, store ledger.Store, userID string) {
	t.Helper()
	ctx := context.Background()
	w, err := store.GetWallet(ctx, userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.Equal(w.TotalAdded.Sub(w.TotalSpent)) {
		t.Fatalf("identity broken: balance %s, added %s, spent %s", w.Balance, w.TotalAdded, w.TotalSpent)
	}

	entries, err := store.ListEntries(ctx, userID, ledger.EntryFilter{Status: ledger.StatusCompleted})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	sum := decimal.Zero
	for _, e := range entries {
		switch e.Kind {
		case ledger.KindCredit:
			sum = sum.Add(e.Amount)
		case ledger.KindDebit:
			sum = sum.Sub(e.Amount)
		}
	}
	if !sum.Equal(w.Balance) {
		t.Fatalf("ledger disagrees with wallet: entries sum %s, balance %s", sum, w.Balance)
	}
}

func TestCreditFundsRejectsNonPositiveAmount(t *testing.T) {
	engine, _, _, userID := newTestEngine(t)
	for _, amount := range []string{"0", "-5"} {
		_, err := engine.CreditFunds(context.Background(), CreditInput{UserID: userID, Amount: money(amount)})
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestCreditFundsUnknownWallet(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	_, err := engine.CreditFunds(context.Background(), CreditInput{UserID: uuid.NewString(), Amount: money("10")})
	if !errors.Is(err, ledger.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestTopUpThenOrderScenario(t *testing.T) {
	engine, store, ordersRepo, userID := newTestEngine(t)
	ctx := context.Background()

	credit, err := engine.CreditFunds(ctx, CreditInput{
		UserID:      userID,
		Amount:      money("100.00"),
		Description: "top-up",
		ExternalRef: "PP_1",
		Method:      "PhonePe",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !credit.Wallet.Balance.Equal(money("100.00")) || !credit.Wallet.TotalAdded.Equal(money("100.00")) {
		t.Fatalf("unexpected wallet after credit: %+v", credit.Wallet)
	}
	if credit.Entry.Kind != ledger.KindCredit || credit.Entry.Status != ledger.StatusCompleted {
		t.Fatalf("unexpected entry: %+v", credit.Entry)
	}

	order, err := engine.DebitForOrder(ctx, OrderDraft{
		UserID:    userID,
		Service:   "Instagram Followers",
		Quantity:  1000,
		TargetURL: "https://instagram.com/someone",
		Price:     money("25.00"),
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !order.Wallet.Balance.Equal(money("75.00")) || !order.Wallet.TotalSpent.Equal(money("25.00")) {
		t.Fatalf("unexpected wallet after debit: %+v", order.Wallet)
	}
	if order.Order.Status != orders.StatusPending || order.Order.Remains != 1000 || order.Order.StartCount != 0 {
		t.Fatalf("unexpected order: %+v", order.Order)
	}
	if order.Entry.OrderID != order.Order.ID {
		t.Fatalf("debit entry does not reference the order: %+v", order.Entry)
	}
	if _, err := ordersRepo.Get(ctx, order.Order.ID); err != nil {
		t.Fatalf("order not persisted: %v", err)
	}

	// Replaying the same payment reference leaves the wallet unchanged and
	// creates no second entry.
	replay, err := engine.CreditFunds(ctx, CreditInput{
		UserID:      userID,
		Amount:      money("100.00"),
		Description: "top-up",
		ExternalRef: "PP_1",
		Method:      "PhonePe",
	})
	if err != nil {
		t.Fatalf("replay credit: %v", err)
	}
	if !replay.Replayed {
		t.Fatal("replay not marked as such")
	}
	if !replay.Wallet.Balance.Equal(money("75.00")) {
		t.Fatalf("replay changed balance: %s", replay.Wallet.Balance)
	}
	if replay.Entry.ID != credit.Entry.ID {
		t.Fatalf("replay produced a new entry: %s != %s", replay.Entry.ID, credit.Entry.ID)
	}

	credits, err := store.ListEntries(ctx, userID, ledger.EntryFilter{Kind: ledger.KindCredit})
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if len(credits) != 1 {
		t.Fatalf("expected exactly one credit entry, got %d", len(credits))
	}

	checkIdentity(t, store, userID)
}

func TestDebitForOrderInsufficientBalance(t *testing.T) {
	engine, store, _, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreditFunds(ctx, CreditInput{UserID: userID, Amount: money("10.00")}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := engine.DebitForOrder(ctx, OrderDraft{
		UserID:   userID,
		Service:  "Instagram Followers",
		Quantity: 1000,
		Price:    money("25.00"),
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	w, _ := store.GetWallet(ctx, userID)
	if !w.Balance.Equal(money("10.00")) || !w.TotalSpent.IsZero() {
		t.Fatalf("failed debit mutated wallet: %+v", w)
	}
	debits, _ := store.ListEntries(ctx, userID, ledger.EntryFilter{Kind: ledger.KindDebit})
	if len(debits) != 0 {
		t.Fatalf("failed debit left %d entries", len(debits))
	}
	checkIdentity(t, store, userID)
}

func TestConcurrentDebitsSingleWinner(t *testing.T) {
	engine, store, _, userID := newTestEngine(t)
	ctx := context.Background()

	balance := money("50.00")
	if _, err := engine.CreditFunds(ctx, CreditInput{UserID: userID, Amount: balance}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	const contenders = 8
	results := make(chan error, contenders)
	var wg sync.WaitGroup
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.DebitForOrder(ctx, OrderDraft{
				UserID:   userID,
				Service:  "YouTube Views",
				Quantity: 10000,
				Price:    balance,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrConflict):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != contenders-1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d losses", wins, losses)
	}

	w, _ := store.GetWallet(ctx, userID)
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}
	checkIdentity(t, store, userID)
}

func TestConcurrentMixedSettlementsKeepIdentity(t *testing.T) {
	engine, store, _, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.CreditFunds(ctx, CreditInput{UserID: userID, Amount: money("100")}); err != nil {
		t.Fatalf("seed credit: %v", err)
	}

	const rounds = 20
	var wg sync.WaitGroup
	wg.Add(2 * rounds)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			_, _ = engine.CreditFunds(ctx, CreditInput{UserID: userID, Amount: money("3")})
		}()
		go func() {
			defer wg.Done()
			_, _ = engine.DebitForOrder(ctx, OrderDraft{
				UserID:   userID,
				Service:  "Instagram Likes",
				Quantity: 100,
				Price:    money("7"),
			})
		}()
	}
	wg.Wait()

	checkIdentity(t, store, userID)
	w, _ := store.GetWallet(ctx, userID)
	if w.Balance.IsNegative() {
		t.Fatalf("balance went negative: %s", w.Balance)
	}
}

func TestRecordDeclinedTopUpDoesNotTouchWallet(t *testing.T) {
	engine, store, _, userID := newTestEngine(t)
	ctx := context.Background()

	entry, err := engine.RecordDeclinedTopUp(ctx, userID, money("40"), "PhonePe", "PP_declined", "Wallet top-up via PhonePe")
	if err != nil {
		t.Fatalf("record declined: %v", err)
	}
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("expected failed status, got %s", entry.Status)
	}

	w, _ := store.GetWallet(ctx, userID)
	if !w.Balance.IsZero() || !w.TotalAdded.IsZero() {
		t.Fatalf("declined top-up mutated wallet: %+v", w)
	}

	// The declined reference is burned: only a completed entry can answer a
	// replay, so reusing it is a duplicate, not a prior result.
	_, err = engine.CreditFunds(ctx, CreditInput{UserID: userID, Amount: money("40"), ExternalRef: "PP_declined"})
	if !errors.Is(err, ledger.ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference for burned reference, got %v", err)
	}
	w, _ = store.GetWallet(ctx, userID)
	if !w.Balance.IsZero() {
		t.Fatalf("credit with burned reference applied: %s", w.Balance)
	}
}

// outageStore fails every operation as unavailable, standing in for a store
// that stays down across the whole retry window.
type outageStore struct{}

func (outageStore) CreateWallet(context.Context, string) (ledger.Wallet, error) {
	return ledger.Wallet{}, ledger.ErrUnavailable
}

func (outageStore) GetWallet(context.Context, string) (ledger.Wallet, error) {
	return ledger.Wallet{}, ledger.ErrUnavailable
}

func (outageStore) CompareAndSwapWallet(context.Context, int64, ledger.Wallet) error {
	return ledger.ErrUnavailable
}

func (outageStore) AppendEntry(context.Context, ledger.Entry) (ledger.Entry, error) {
	return ledger.Entry{}, ledger.ErrUnavailable
}

func (outageStore) EntryByExternalRef(context.Context, string) (ledger.Entry, error) {
	return ledger.Entry{}, ledger.ErrUnavailable
}

func (outageStore) ListEntries(context.Context, string, ledger.EntryFilter) ([]ledger.Entry, error) {
	return nil, ledger.ErrUnavailable
}

func (outageStore) SettleCredit(context.Context, int64, ledger.Wallet, ledger.Entry) (ledger.Wallet, ledger.Entry, error) {
	return ledger.Wallet{}, ledger.Entry{}, ledger.ErrUnavailable
}

func (outageStore) SettleDebit(context.Context, int64, ledger.Wallet, orders.Order, ledger.Entry) (ledger.Wallet, orders.Order, ledger.Entry, error) {
	return ledger.Wallet{}, orders.Order{}, ledger.Entry{}, ledger.ErrUnavailable
}

// commitOutageStore reads fine but every commit fails as unavailable.
type commitOutageStore struct{ ledger.Store }

func (commitOutageStore) SettleCredit(context.Context, int64, ledger.Wallet, ledger.Entry) (ledger.Wallet, ledger.Entry, error) {
	return ledger.Wallet{}, ledger.Entry{}, ledger.ErrUnavailable
}

func TestCreditFundsSurfacesStoreOutage(t *testing.T) {
	engine := NewEngine(outageStore{}, NoopIndex{}, nil, logging.Discard())
	_, err := engine.CreditFunds(context.Background(), CreditInput{UserID: uuid.NewString(), Amount: money("10")})
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after exhausted retries, got %v", err)
	}
}

func TestDebitForOrderSurfacesStoreOutage(t *testing.T) {
	engine := NewEngine(outageStore{}, NoopIndex{}, nil, logging.Discard())
	_, err := engine.DebitForOrder(context.Background(), OrderDraft{
		UserID:   uuid.NewString(),
		Service:  "Instagram Followers",
		Quantity: 100,
		Price:    money("5"),
	})
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after exhausted retries, got %v", err)
	}
}

func TestCreditFundsSurfacesCommitOutage(t *testing.T) {
	inner := ledger.NewInMemory(orders.NewMemoryRepository())
	userID := uuid.NewString()
	if _, err := inner.CreateWallet(context.Background(), userID); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	engine := NewEngine(commitOutageStore{inner}, NoopIndex{}, nil, logging.Discard())
	_, err := engine.CreditFunds(context.Background(), CreditInput{UserID: userID, Amount: money("10")})
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after exhausted retries, got %v", err)
	}

	w, err := inner.GetWallet(context.Background(), userID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("failed commits mutated wallet: %s", w.Balance)
	}
}
