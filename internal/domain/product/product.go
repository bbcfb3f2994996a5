package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not exist.
	ErrVariantNotFound = errors.New("product variant not found")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	WeightKg decimal.Decimal
}

// Variant is a purchasable (color, size) instance of a product carrying its
// own stock counter. Stock is only mutated inside an order reservation
// transaction and never goes negative.
type Variant struct {
	ID        string
	ProductID string
	Color     string
	Size      string
	Stock     int
}

// VariantDetail pairs a variant with its parent product.
type VariantDetail struct {
	Variant Variant
	Product Product
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetVariants returns the variants for the given IDs together with their
	// parent products, in a single batch.
	GetVariants(ctx context.Context, ids []string) ([]VariantDetail, error)
}
