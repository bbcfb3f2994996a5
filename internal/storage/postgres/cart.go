package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extremewear/checkout-api/internal/domain/cart"
)

const (
	getCartItemsSQL = `SELECT ci.variant_id, p.id, p.name, p.price, v.size, ci.quantity
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE c.user_id = $1
		ORDER BY ci.added_at`

	clearCartSQL = `DELETE FROM cart_items
		WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Items returns the user's cart lines with current catalog prices. A user
// without a cart row gets an empty slice, not an error.
func (r *CartRepository) Items(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart for user %q: %w", userID, err)
	}

	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("loading cart for user %q: %w", userID, err)
	}
	return items, nil
}

// Clear removes every line from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.VariantID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Size, &it.Quantity)
	return it, err
}
