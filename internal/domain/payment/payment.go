package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// Status enumerates the lifecycle of an external payment confirmation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusCaptured Status = "captured"
	StatusFailed   Status = "failed"
)

// ErrInvalidSignature is returned when a payment confirmation's signature
// does not match the expected HMAC.
var ErrInvalidSignature = errors.New("invalid payment signature")

// GatewayOrder is the external payment-order reference created before the
// customer pays. Amount is in integer minor units (paise for INR).
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway is the boundary to the external payment provider. Implementations
// create a payment order for a given integer minor-unit amount; everything
// else about the provider's protocol stays behind this interface.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (*GatewayOrder, error)
}
