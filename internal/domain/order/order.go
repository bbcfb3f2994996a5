package order

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates the forward-only order fulfilment states.
type Status string

const (
	StatusPlaced         Status = "placed"
	StatusAccepted       Status = "accepted"
	StatusInProcess      Status = "in_process"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
)

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	MethodOnline PaymentMethod = "online"
	MethodCOD    PaymentMethod = "cod"
)

// Sentinel errors for order validation and lookup.
var (
	ErrEmptyItems              = errors.New("items required")
	ErrShippingAddressRequired = errors.New("shipping address is required")
	ErrBillingEmailRequired    = errors.New("billing email is required")
	ErrNotFound                = errors.New("order not found")
	// ErrStockContention is returned when a variant row lock could not be
	// acquired within the bounded wait. The request is safe to retry.
	ErrStockContention = errors.New("stock row is locked, retry")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for variant %s", e.VariantID)
}

// InsufficientStockError indicates a reservation could not satisfy a line
// item. The whole transaction is rolled back when this happens.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// Order is a placed customer order. Code is assigned once at creation and
// never changes; TotalAmount is fixed at creation and never recomputed.
type Order struct {
	Code            string
	UserID          string
	Status          Status
	PaymentMethod   PaymentMethod
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	CouponCode      string
	ShippingAddress string
	BillingEmail    string
	GatewayOrderID  string
	Paid            bool
	Items           []Item
	CreatedAt       time.Time
}

// Item is one order line with the unit price snapshotted at order time,
// decoupled from later catalog price changes.
type Item struct {
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice decimal.Decimal
	Size      string
}

// Repository defines persistence for orders, their items, and payment
// confirmations.
type Repository interface {
	// CreateReserved persists the order and its items after atomically
	// reserving stock for every line: each variant row is locked, checked,
	// and decremented inside one transaction. When the order carries a
	// coupon code the coupon's usage counter is incremented in the same
	// transaction, guarded against its usage limit. clearCart additionally
	// empties the user's cart before commit. Any failure rolls everything
	// back.
	CreateReserved(ctx context.Context, o *Order, clearCart bool) error

	// FindByGatewayOrderRef returns the order that owns the given external
	// payment-order reference, or ErrNotFound.
	FindByGatewayOrderRef(ctx context.Context, ref string) (*Order, error)

	// RecordCapture stores a captured payment for the order, marks it paid,
	// and clears the owner's cart, all in one transaction. It is idempotent
	// per (order, paymentRef): a replay returns created=false and changes
	// nothing.
	RecordCapture(ctx context.Context, orderCode, paymentRef, signature string) (created bool, err error)

	// CountSettledOrders reports the user's orders in a non-pending status,
	// for new-user coupon eligibility.
	CountSettledOrders(ctx context.Context, userID string) (int, error)
}

// UserDirectory is the boundary to the user store, supplying the profile
// fields an order snapshot needs.
type UserDirectory interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// UserProfile is the slice of a user record the checkout pipeline reads.
type UserProfile struct {
	Email   string
	Phone   string
	Address string
}

// NewOrderCode generates an opaque, globally unique order code of the form
// ORD followed by 10 uppercase hex characters.
func NewOrderCode() string {
	id := uuid.New()
	return "ORD" + strings.ToUpper(hex.EncodeToString(id[:]))[:10]
}
