package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/extremewear/checkout-api/internal/domain/order"
)

const getUserProfileSQL = `SELECT email, COALESCE(phone, ''), COALESCE(address, '')
	FROM users WHERE id = $1`

var _ order.UserDirectory = (*UserRepository)(nil)

// UserRepository supplies user profile data backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetProfile fetches the profile fields an order snapshot needs.
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*order.UserProfile, error) {
	var p order.UserProfile
	err := r.pool.QueryRow(ctx, getUserProfileSQL, userID).Scan(&p.Email, &p.Phone, &p.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q not found: %w", userID, err)
		}
		return nil, fmt.Errorf("finding user %q: %w", userID, err)
	}
	return &p, nil
}
