package ledger

import "github.com/shopspring/decimal"

// SeedWallet is a test helper that installs a wallet snapshot when using the
// in-memory store. TotalAdded is set to the balance so the ledger identity
// holds from the start.
func SeedWallet(s Store, userID string, balance decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.wallets[userID] = Wallet{
			UserID:     userID,
			Balance:    balance,
			TotalAdded: balance,
			Version:    1,
		}
	}
}
