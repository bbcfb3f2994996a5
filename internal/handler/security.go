package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/extremewear/checkout-api/internal/domain/auth"
)

type userIDKey struct{}

// UserFromContext returns the authenticated user ID stored by APIKeyAuth, or
// an empty string for unauthenticated requests.
func UserFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// APIKeyAuth returns a middleware that authenticates requests via the
// api_key header. The key is hashed with HMAC-SHA256 under the pepper,
// looked up, and compared in constant time; the owning user ID is stored in
// the request context for handlers to pass down explicitly.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// The lookup succeeded, but compare against the stored hash in
			// constant time in case the repository returned a stale row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, info.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
