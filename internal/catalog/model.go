package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the service does not exist.
	ErrNotFound = errors.New("service not found")
	// ErrInactive indicates the service is not currently orderable.
	ErrInactive = errors.New("service is inactive")
)

// Service is one orderable catalog item. Price is the per-unit rate; order
// totals are quoted to two decimal places.
type Service struct {
	ID          string
	Name        string
	Category    string
	Description string
	Price       decimal.Decimal
	MinQuantity int64
	MaxQuantity int64
	Active      bool
	CreatedAt   time.Time
}

// Quote validates the quantity against the service bounds and returns the
// order total, rounded to two decimal places.
func (s Service) Quote(quantity int64) (decimal.Decimal, error) {
	if !s.Active {
		return decimal.Decimal{}, ErrInactive
	}
	if quantity < s.MinQuantity || quantity > s.MaxQuantity {
		return decimal.Decimal{}, fmt.Errorf("quantity must be between %d and %d", s.MinQuantity, s.MaxQuantity)
	}
	return s.Price.Mul(decimal.NewFromInt(quantity)).Round(2), nil
}
