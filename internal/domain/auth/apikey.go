// Package auth defines API key identity for the HTTP surface. Keys are
// stored hashed; a validated key resolves to the owning user, which the
// handlers pass down explicitly.
package auth

import "context"

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	UserID  string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
