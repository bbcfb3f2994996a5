package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extremewear/checkout-api/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT id, name, price, category, weight_kg
		FROM products WHERE id = $1`

	getVariantDetailsSQL = `SELECT v.id, v.product_id, v.color, v.size, v.stock,
			p.id, p.name, p.price, p.category, p.weight_kg
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByID fetches a single product.
// Returns product.ErrNotFound when no row matches.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("finding product %q: %w", id, err)
	}
	return &p, nil
}

// GetVariants fetches the variants with the given IDs joined to their
// products. IDs with no matching row are simply absent from the result;
// callers decide whether that is an error.
func (r *ProductRepository) GetVariants(ctx context.Context, ids []string) ([]product.VariantDetail, error) {
	rows, err := r.pool.Query(ctx, getVariantDetailsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("finding variants: %w", err)
	}

	details, err := pgx.CollectRows(rows, scanVariantDetail)
	if err != nil {
		return nil, fmt.Errorf("finding variants: %w", err)
	}
	return details, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.WeightKg)
	return p, err
}

func scanVariantDetail(row pgx.CollectableRow) (product.VariantDetail, error) {
	var vd product.VariantDetail
	err := row.Scan(
		&vd.Variant.ID, &vd.Variant.ProductID, &vd.Variant.Color, &vd.Variant.Size, &vd.Variant.Stock,
		&vd.Product.ID, &vd.Product.Name, &vd.Product.Price, &vd.Product.Category, &vd.Product.WeightKg,
	)
	return vd, err
}
