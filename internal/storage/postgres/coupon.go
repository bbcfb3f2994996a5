package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extremewear/checkout-api/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, value, minimum_order_amount,
			new_user_only, valid_from, valid_to, usage_limit, used_count
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	getCouponProductsSQL = `SELECT product_id FROM coupon_products WHERE coupon_code = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive),
// including its applicable-product set.
// Returns coupon.ErrInvalidCoupon when no matching active coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	productRows, err := r.pool.Query(ctx, getCouponProductsSQL, rule.Code)
	if err != nil {
		return nil, fmt.Errorf("loading products for coupon %q: %w", rule.Code, err)
	}
	rule.ApplicableProducts, err = pgx.CollectRows(productRows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("loading products for coupon %q: %w", rule.Code, err)
	}

	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule       coupon.Rule
		validFrom  time.Time
		validTo    time.Time
		usageLimit *int32
		usedCount  int32
	)
	err := row.Scan(
		&rule.Code, &rule.DiscountType, &rule.Value, &rule.MinimumOrderAmount,
		&rule.NewUserOnly, &validFrom, &validTo, &usageLimit, &usedCount,
	)
	rule.ValidFrom = validFrom
	rule.ValidTo = validTo
	if usageLimit != nil {
		limit := int(*usageLimit)
		rule.UsageLimit = &limit
	}
	rule.UsedCount = int(usedCount)
	return rule, err
}
