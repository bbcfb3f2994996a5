package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the user has no cart yet.
	ErrNotFound = errors.New("cart not found")
	// ErrEmpty is returned when checkout is attempted against an empty cart.
	ErrEmpty = errors.New("cart is empty")
)

// Item is one cart line: a variant reference plus a quantity of at least 1.
// There is at most one line per (cart, variant) pair; repeated additions
// increment the quantity instead of adding lines.
type Item struct {
	VariantID   string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Size        string
	Quantity    int
}

// Repository is the boundary to the cart store. The checkout pipeline only
// reads a user's cart and clears its items after a successful placement; cart
// management itself lives outside this service.
type Repository interface {
	// Items returns the user's cart lines in insertion order. A user with no
	// cart yields either an empty slice or ErrNotFound, depending on whether
	// the store tracks cart rows separately from their items.
	Items(ctx context.Context, userID string) ([]Item, error)
	// Clear removes all items from the user's cart. The cart row itself
	// survives.
	Clear(ctx context.Context, userID string) error
}
