package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StatusPending marks a freshly placed order awaiting fulfilment.
	StatusPending = "pending"
	// StatusProcessing marks an order currently being delivered.
	StatusProcessing = "processing"
	// StatusCompleted marks a fully delivered order.
	StatusCompleted = "completed"
	// StatusCancelled marks an order cancelled before completion.
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order represents a placed marketing-service order. The row is created
// atomically with the debit that pays for it; fulfilment transitions the
// status and counters afterwards.
type Order struct {
	ID         string
	UserID     string
	Service    string
	Quantity   int64
	Price      decimal.Decimal
	Status     string
	StartCount int64
	Remains    int64
	TargetURL  string
	CreatedAt  time.Time
}
