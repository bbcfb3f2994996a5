package handler

import (
	"net/http"

	"github.com/extremewear/checkout-api/internal/domain/order"
)

type placeOrderRequest struct {
	ShippingAddress string             `json:"shipping_address"`
	BillingEmail    string             `json:"billing_email"`
	Items           []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	Code            string              `json:"code"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"payment_method"`
	TotalAmount     float64             `json:"total_amount"`
	DiscountAmount  float64             `json:"discount_amount"`
	CouponCode      string              `json:"coupon_code,omitempty"`
	ShippingAddress string              `json:"shipping_address"`
	Paid            bool                `json:"paid"`
	Items           []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Size      string  `json:"size,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Size:      it.Size,
		}
	}
	return orderResponse{
		Code:            o.Code,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		DiscountAmount:  o.DiscountAmount.InexactFloat64(),
		CouponCode:      o.CouponCode,
		ShippingAddress: o.ShippingAddress,
		Paid:            o.Paid,
		Items:           items,
	}
}

// placeOrder creates an order from an explicit item list with stock reserved
// atomically across all lines.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{VariantID: it.VariantID, Quantity: it.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), UserFromContext(r.Context()), order.PlaceOrderRequest{
		ShippingAddress: req.ShippingAddress,
		BillingEmail:    req.BillingEmail,
		Items:           items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	recordOrderPlaced(r.Context(), string(o.PaymentMethod))
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}
