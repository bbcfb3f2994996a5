package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed_amount"
	// DiscountBogoHalf applies 50% off every second unit (by ascending price)
	// among the coupon's applicable products.
	DiscountBogoHalf DiscountType = "bogo_50"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found or not active.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its validity window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrMinimumNotMet is returned when the order subtotal is below the
	// coupon's minimum order amount.
	ErrMinimumNotMet = errors.New("order total below coupon minimum")
	// ErrNewUsersOnly is returned when a new-user coupon is used by a
	// customer with prior orders.
	ErrNewUsersOnly = errors.New("coupon is restricted to new users")
)

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Exactly one discount strategy applies, selected by DiscountType:
// percentage and fixed_amount use Value against the subtotal, bogo_50
// ignores Value and uses ApplicableProducts against the line items.
type Rule struct {
	Code               string
	DiscountType       DiscountType
	Value              decimal.Decimal
	MinimumOrderAmount decimal.Decimal
	// ApplicableProducts limits a bogo_50 rule to a curated product set.
	// Empty for the other discount types.
	ApplicableProducts []string
	NewUserOnly        bool
	ValidFrom          time.Time
	ValidTo            time.Time
	// UsageLimit caps total redemptions; nil means unlimited.
	UsageLimit *int
	UsedCount  int
}

// Discount holds the computed discount amount and a human-readable description.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Item represents a cart line for discount calculation purposes.
type Item struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides lookup of coupon rules by code. Lookups are
// case-insensitive; only active coupons are returned. The usage counter is
// incremented by the order repository inside the checkout transaction, not
// here, so the limit check stays race-free.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// OrderCounter reports how many settled (non-pending) orders a user has.
// Used for new-user-only coupon eligibility.
type OrderCounter interface {
	CountSettledOrders(ctx context.Context, userID string) (int, error)
}
