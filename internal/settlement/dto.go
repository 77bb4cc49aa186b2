package settlement

import (
	"time"

	"github.com/boostgram/boostgram/internal/ledger"
	"github.com/boostgram/boostgram/internal/orders"
)

// TopUpRequest captures user-provided data to add funds to a wallet.
type TopUpRequest struct {
	Amount        string `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaymentRef    string `json:"payment_ref"`
}

// PlaceOrderRequest captures a storefront order to place and pay for.
type PlaceOrderRequest struct {
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id"`
	Quantity  int64  `json:"quantity"`
	TargetURL string `json:"target_url"`
}

// WalletResponse is the API representation of a wallet snapshot.
type WalletResponse struct {
	UserID     string    `json:"user_id"`
	Balance    string    `json:"balance"`
	TotalAdded string    `json:"total_added"`
	TotalSpent string    `json:"total_spent"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EntryResponse is the API representation of a ledger entry.
type EntryResponse struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	PaymentRef    string    `json:"payment_ref,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderResponse is the API representation of a placed order.
type OrderResponse struct {
	ID         string    `json:"id"`
	Service    string    `json:"service"`
	Quantity   int64     `json:"quantity"`
	Price      string    `json:"price"`
	Status     string    `json:"status"`
	StartCount int64     `json:"start_count"`
	Remains    int64     `json:"remains"`
	TargetURL  string    `json:"target_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TopUpResponse is returned for completed (or replayed) top-ups.
type TopUpResponse struct {
	Wallet      WalletResponse `json:"wallet"`
	Transaction EntryResponse  `json:"transaction"`
}

// PlaceOrderResponse is returned for successfully placed orders.
type PlaceOrderResponse struct {
	Order       OrderResponse  `json:"order"`
	Wallet      WalletResponse `json:"wallet"`
	Transaction EntryResponse  `json:"transaction"`
}

func toWalletResponse(w ledger.Wallet) WalletResponse {
	return WalletResponse{
		UserID:     w.UserID,
		Balance:    w.Balance.StringFixed(2),
		TotalAdded: w.TotalAdded.StringFixed(2),
		TotalSpent: w.TotalSpent.StringFixed(2),
		UpdatedAt:  w.UpdatedAt,
	}
}

func toEntryResponse(e ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:            e.ID,
		Kind:          e.Kind,
		Amount:        e.Amount.StringFixed(2),
		Description:   e.Description,
		Status:        e.Status,
		PaymentRef:    e.ExternalRef,
		PaymentMethod: e.PaymentMethod,
		OrderID:       e.OrderID,
		CreatedAt:     e.CreatedAt,
	}
}

func toOrderResponse(o orders.Order) OrderResponse {
	return OrderResponse{
		ID:         o.ID,
		Service:    o.Service,
		Quantity:   o.Quantity,
		Price:      o.Price.StringFixed(2),
		Status:     o.Status,
		StartCount: o.StartCount,
		Remains:    o.Remains,
		TargetURL:  o.TargetURL,
		CreatedAt:  o.CreatedAt,
	}
}
