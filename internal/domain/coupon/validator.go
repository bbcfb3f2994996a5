package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator validates a coupon code for a specific user against a set of
// cart items and returns the computed discount. Every caller gets the same
// policy: an ineligible coupon is a hard rejection, never a silent zero
// discount.
type Validator interface {
	Validate(ctx context.Context, code, userID string, items []Item) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via the Apply function.
type RepoValidator struct {
	repo   Repository
	orders OrderCounter
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository
// and order counter.
func NewRepoValidator(repo Repository, orders OrderCounter) *RepoValidator {
	return &RepoValidator{repo: repo, orders: orders, now: time.Now}
}

// Validate looks up the rule for the given code and checks, in order:
// validity window, usage limit, new-user eligibility, and (for non-BOGO
// rules) the minimum order amount against the items' subtotal. On success it
// returns the computed discount. It does not increment the usage counter;
// that happens inside the order transaction so the limit cannot be raced.
func (v *RepoValidator) Validate(ctx context.Context, code, userID string, items []Item) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()
	if now.Before(rule.ValidFrom) || now.After(rule.ValidTo) {
		return nil, ErrCouponExpired
	}

	if rule.UsageLimit != nil && rule.UsedCount >= *rule.UsageLimit {
		return nil, ErrCouponUsageLimitReached
	}

	if rule.NewUserOnly {
		if userID == "" {
			return nil, ErrNewUsersOnly
		}
		n, err := v.orders.CountSettledOrders(ctx, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count prior orders")
		}
		if n > 0 {
			return nil, ErrNewUsersOnly
		}
	}

	if rule.DiscountType != DiscountBogoHalf {
		if subtotal(items).LessThan(rule.MinimumOrderAmount) {
			return nil, ErrMinimumNotMet
		}
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
