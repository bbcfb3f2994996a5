package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extremewear/checkout-api/internal/domain/coupon"
	"github.com/extremewear/checkout-api/internal/domain/order"
)

const (
	lockVariantStockSQL = `SELECT stock FROM variants WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE variants SET stock = stock - $2 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (code, user_id, status, payment_method,
			total_amount, discount_amount, coupon_code, shipping_address,
			billing_email, gateway_order_id, paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItemSQL = `INSERT INTO order_items (order_code, product_id, variant_id,
			quantity, unit_price, size)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// The usage counter is bumped only while still under the limit, so two
	// racing checkouts cannot both take the last redemption.
	redeemCouponSQL = `UPDATE coupons
		SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER($1)
		  AND (usage_limit IS NULL OR used_count < usage_limit)`

	getOrderByGatewayRefSQL = `SELECT code, user_id, status, payment_method,
			total_amount, discount_amount, COALESCE(coupon_code, ''),
			shipping_address, billing_email, COALESCE(gateway_order_id, ''),
			paid, created_at
		FROM orders WHERE gateway_order_id = $1`

	getOrderItemsSQL = `SELECT product_id, variant_id, quantity, unit_price, size
		FROM order_items WHERE order_code = $1 ORDER BY id`

	insertPaymentSQL = `INSERT INTO payments (order_code, gateway_payment_id, signature, status)
		VALUES ($1, $2, $3, 'captured')
		ON CONFLICT (order_code, gateway_payment_id) DO NOTHING`

	markOrderPaidSQL = `UPDATE orders SET paid = TRUE WHERE code = $1`

	clearCartByOrderSQL = `DELETE FROM cart_items
		WHERE cart_id = (SELECT c.id FROM carts c
			JOIN orders o ON o.user_id = c.user_id
			WHERE o.code = $1)`

	countSettledOrdersSQL = `SELECT COUNT(*) FROM orders
		WHERE user_id = $1 AND status <> 'placed'`

	// lockTimeoutSQL bounds how long a checkout waits on contended variant
	// rows before giving up with a retryable error.
	lockTimeoutSQL = `SET LOCAL lock_timeout = '3s'`
)

// lockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const lockNotAvailable = "55P03"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateReserved persists the order after reserving stock for every line in
// one transaction. Variant rows are locked in ascending ID order so two
// overlapping checkouts cannot deadlock, then checked and decremented. The
// coupon counter increment and optional cart clear ride the same transaction;
// any failure rolls everything back.
func (r *OrderRepository) CreateReserved(ctx context.Context, o *order.Order, clearCart bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, lockTimeoutSQL); err != nil {
		return fmt.Errorf("setting lock timeout: %w", err)
	}

	// Collapse duplicate variant lines so each row is locked exactly once.
	wanted := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		wanted[item.VariantID] += item.Quantity
	}
	variantIDs := make([]string, 0, len(wanted))
	for id := range wanted {
		variantIDs = append(variantIDs, id)
	}
	sort.Strings(variantIDs)

	for _, id := range variantIDs {
		var available int
		if err := tx.QueryRow(ctx, lockVariantStockSQL, id).Scan(&available); err != nil {
			if isLockTimeout(err) {
				return order.ErrStockContention
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("variant %q not found", id)
			}
			return fmt.Errorf("locking stock for variant %q: %w", id, err)
		}

		if available < wanted[id] {
			return &order.InsufficientStockError{
				VariantID: id,
				Requested: wanted[id],
				Available: available,
			}
		}

		if _, err := tx.Exec(ctx, decrementStockSQL, id, wanted[id]); err != nil {
			return fmt.Errorf("reserving stock for variant %q: %w", id, err)
		}
	}

	var couponCode *string
	if o.CouponCode != "" {
		couponCode = &o.CouponCode
	}
	var gatewayOrderID *string
	if o.GatewayOrderID != "" {
		gatewayOrderID = &o.GatewayOrderID
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.Code, o.UserID, o.Status, o.PaymentMethod,
		o.TotalAmount, o.DiscountAmount, couponCode, o.ShippingAddress,
		o.BillingEmail, gatewayOrderID, o.Paid,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Code, err)
	}

	for _, item := range o.Items {
		_, err := tx.Exec(ctx, insertOrderItemSQL,
			o.Code, item.ProductID, item.VariantID, item.Quantity, item.UnitPrice, item.Size,
		)
		if err != nil {
			return fmt.Errorf("creating order item for variant %q: %w", item.VariantID, err)
		}
	}

	if o.CouponCode != "" {
		tag, err := tx.Exec(ctx, redeemCouponSQL, o.CouponCode)
		if err != nil {
			return fmt.Errorf("redeeming coupon %q: %w", o.CouponCode, err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrCouponUsageLimitReached
		}
	}

	if clearCart {
		if _, err := tx.Exec(ctx, clearCartSQL, o.UserID); err != nil {
			return fmt.Errorf("clearing cart for user %q: %w", o.UserID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.Code, err)
	}
	return nil
}

// FindByGatewayOrderRef returns the order owning the given external
// payment-order reference, with its items.
// Returns order.ErrNotFound when no row matches.
func (r *OrderRepository) FindByGatewayOrderRef(ctx context.Context, ref string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByGatewayRefSQL, ref)
	if err != nil {
		return nil, fmt.Errorf("finding order by gateway ref %q: %w", ref, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by gateway ref %q: %w", ref, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, o.Code)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", o.Code, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("loading items for order %q: %w", o.Code, err)
	}

	return &o, nil
}

// RecordCapture stores a captured payment, marks the order paid, and clears
// the owner's cart in one transaction. The payment insert is idempotent per
// (order, paymentRef): a replayed confirmation returns created=false and
// leaves everything as it was.
func (r *OrderRepository) RecordCapture(ctx context.Context, orderCode, paymentRef, signature string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("beginning capture transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, insertPaymentSQL, orderCode, paymentRef, signature)
	if err != nil {
		return false, fmt.Errorf("recording payment for order %q: %w", orderCode, err)
	}
	created := tag.RowsAffected() > 0

	if created {
		if _, err := tx.Exec(ctx, markOrderPaidSQL, orderCode); err != nil {
			return false, fmt.Errorf("marking order %q paid: %w", orderCode, err)
		}
		if _, err := tx.Exec(ctx, clearCartByOrderSQL, orderCode); err != nil {
			return false, fmt.Errorf("clearing cart for order %q: %w", orderCode, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing capture for order %q: %w", orderCode, err)
	}
	return created, nil
}

// CountSettledOrders reports the user's orders past the pending state.
func (r *OrderRepository) CountSettledOrders(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countSettledOrdersSQL, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting settled orders for user %q: %w", userID, err)
	}
	return count, nil
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.Code, &o.UserID, &o.Status, &o.PaymentMethod,
		&o.TotalAmount, &o.DiscountAmount, &o.CouponCode,
		&o.ShippingAddress, &o.BillingEmail, &o.GatewayOrderID,
		&o.Paid, &o.CreatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice, &it.Size)
	return it, err
}
