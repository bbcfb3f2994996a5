// Package handler exposes the checkout pipeline over JSON HTTP. Handlers
// decode requests, resolve the authenticated user, and delegate to the order
// service; all money leaves the API as plain JSON numbers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/extremewear/checkout-api/internal/domain/cart"
	"github.com/extremewear/checkout-api/internal/domain/coupon"
	"github.com/extremewear/checkout-api/internal/domain/order"
	"github.com/extremewear/checkout-api/internal/domain/payment"
	"github.com/extremewear/checkout-api/internal/domain/product"
)

// Handler serves the checkout API endpoints.
type Handler struct {
	orders *order.Service
}

// NewHandler constructs a Handler backed by the given order service.
func NewHandler(orders *order.Service) *Handler {
	return &Handler{orders: orders}
}

// Routes returns a mux with every API endpoint registered. Authentication is
// applied by the caller around the whole mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/order", h.placeOrder)
	mux.HandleFunc("POST /api/checkout/online", h.checkoutOnline)
	mux.HandleFunc("POST /api/checkout/cod", h.checkoutCOD)
	mux.HandleFunc("POST /api/payment/verify", h.verifyPayment)
	mux.HandleFunc("POST /api/coupon/validate", h.validateCoupon)
	mux.HandleFunc("POST /api/shipping/calculate", h.calculateShipping)
	return mux
}

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, errorResponse{Code: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeDomainError maps a domain error to its HTTP status. Unknown errors
// are logged and reported as an opaque 500 so internals never leak.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty        *order.InvalidQuantityError
		insufficientStock *order.InsufficientStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrShippingAddressRequired),
		errors.Is(err, order.ErrBillingEmailRequired),
		errors.Is(err, cart.ErrEmpty),
		errors.As(err, &invalidQty):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, payment.ErrInvalidSignature):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())

	case errors.As(err, &insufficientStock),
		errors.Is(err, order.ErrStockContention):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponUsageLimitReached),
		errors.Is(err, coupon.ErrMinimumNotMet),
		errors.Is(err, coupon.ErrNewUsersOnly):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
