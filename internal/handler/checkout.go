package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/extremewear/checkout-api/internal/domain/order"
	"github.com/extremewear/checkout-api/internal/domain/shipping"
)

type checkoutRequest struct {
	CouponCode string `json:"coupon_code,omitempty"`
}

type checkoutResponse struct {
	Order   orderResponse         `json:"order"`
	Gateway *gatewayOrderResponse `json:"gateway_order,omitempty"`
}

type gatewayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// checkoutOnline converts the cart into an order awaiting an online payment.
// The response carries the gateway order the client completes payment
// against; the cart survives until the payment is verified.
func (h *Handler) checkoutOnline(w http.ResponseWriter, r *http.Request) {
	h.checkout(w, r, order.MethodOnline)
}

// checkoutCOD converts the cart into a cash-on-delivery order and clears the
// cart immediately.
func (h *Handler) checkoutCOD(w http.ResponseWriter, r *http.Request) {
	h.checkout(w, r, order.MethodCOD)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, method order.PaymentMethod) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.orders.Checkout(r.Context(), UserFromContext(r.Context()), order.CheckoutRequest{
		CouponCode: req.CouponCode,
		Method:     method,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	recordOrderPlaced(r.Context(), string(method))

	resp := checkoutResponse{Order: toOrderResponse(res.Order)}
	if res.GatewayOrder != nil {
		resp.Gateway = &gatewayOrderResponse{
			ID:       res.GatewayOrder.ID,
			Amount:   res.GatewayOrder.Amount,
			Currency: res.GatewayOrder.Currency,
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// verifyPayment checks the gateway's HMAC signature and marks the order paid.
// Replaying the same confirmation succeeds without side effects.
func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), order.ConfirmPaymentRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type validateCouponRequest struct {
	CouponCode  string          `json:"coupon_code"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type validateCouponResponse struct {
	Valid      bool    `json:"valid"`
	Discount   float64 `json:"discount"`
	FinalTotal float64 `json:"final_total"`
}

// validateCoupon quotes a coupon against a plain total without touching any
// cart or counters.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CouponCode == "" {
		respondError(w, http.StatusBadRequest, "coupon_code is required")
		return
	}

	q, err := h.orders.QuoteCoupon(r.Context(), UserFromContext(r.Context()), req.CouponCode, req.TotalAmount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, validateCouponResponse{
		Valid:      true,
		Discount:   q.Discount.InexactFloat64(),
		FinalTotal: q.FinalTotal.InexactFloat64(),
	})
}

type calculateShippingRequest struct {
	Location string          `json:"location"`
	WeightKg decimal.Decimal `json:"weight_kg"`
}

type calculateShippingResponse struct {
	ShippingCost float64 `json:"shipping_cost"`
}

// calculateShipping quotes the delivery fee for a location and parcel weight.
func (h *Handler) calculateShipping(w http.ResponseWriter, r *http.Request) {
	var req calculateShippingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WeightKg.IsNegative() {
		respondError(w, http.StatusBadRequest, "weight_kg must not be negative")
		return
	}

	cost := shipping.Cost(req.Location, req.WeightKg)
	respondJSON(w, http.StatusOK, calculateShippingResponse{ShippingCost: cost.InexactFloat64()})
}
