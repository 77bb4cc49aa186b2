package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// StatusApproved indicates the processor confirmed the payment.
	StatusApproved = "approved"
	// StatusDeclined indicates the processor denied the payment.
	StatusDeclined = "declined"
)

// Charge describes a payment to be authorized by the external processor.
type Charge struct {
	UserID string
	Amount decimal.Decimal
	Method string
}

// Confirmation is the processor's answer. Reference doubles as the
// idempotency reference for the resulting wallet credit.
type Confirmation struct {
	Reference string
	Status    string
}

// Approved reports whether the charge was confirmed.
func (c Confirmation) Approved() bool {
	return c.Status == StatusApproved
}

// Gateway represents a connector to an external payment processor. Settlement
// correctness does not depend on any specific provider: the core only consumes
// the confirmation reference.
type Gateway interface {
	Authorize(ctx context.Context, charge Charge) (Confirmation, error)
}

// StaticGateway simulates a processor that approves every charge.
type StaticGateway struct{}

// Authorize approves the charge with a synthetic payment reference.
func (StaticGateway) Authorize(_ context.Context, _ Charge) (Confirmation, error) {
	ref := fmt.Sprintf("PP_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	return Confirmation{Reference: ref, Status: StatusApproved}, nil
}

// DecliningGateway simulates a processor that denies every charge. Useful in
// tests exercising the declined path.
type DecliningGateway struct{}

// Authorize declines the charge with a synthetic reference.
func (DecliningGateway) Authorize(_ context.Context, _ Charge) (Confirmation, error) {
	ref := fmt.Sprintf("PP_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	return Confirmation{Reference: ref, Status: StatusDeclined}, nil
}
