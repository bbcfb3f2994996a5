//go:build integration

package integration

import (
	"math"
	"net/http"
	"testing"
)

func TestShippingCalculate(t *testing.T) {
	tests := []struct {
		name     string
		location string
		weightKg float64
		want     float64
	}{
		{"free zone", "Chennai", 3.5, 0.00},
		{"neighbor state heavy", "Bengaluru", 6.0, 70.00},
		{"national light", "Mumbai", 1.0, 60.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doPostWithAuth(t, "/api/shipping/calculate", map[string]any{
				"location":  tt.location,
				"weight_kg": tt.weightKg,
			})
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}

			got := decodeJSON[shippingResponse](t, resp)
			if math.Abs(got.ShippingCost-tt.want) > 0.001 {
				t.Errorf("shipping cost = %v, want %v", got.ShippingCost, tt.want)
			}
		})
	}
}

func TestValidateCoupon(t *testing.T) {
	resp := doPostWithAuth(t, "/api/coupon/validate", map[string]any{
		"coupon_code":  "WELCOME10",
		"total_amount": 1000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	quote := decodeJSON[couponQuoteResponse](t, resp)
	if !quote.Valid {
		t.Error("coupon should be valid")
	}
	if math.Abs(quote.Discount-100.00) > 0.001 {
		t.Errorf("discount = %v, want 100.00", quote.Discount)
	}
	if math.Abs(quote.FinalTotal-900.00) > 0.001 {
		t.Errorf("final total = %v, want 900.00", quote.FinalTotal)
	}
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	resp := doPostWithAuth(t, "/api/coupon/validate", map[string]any{
		"coupon_code":  "WELCOME10",
		"total_amount": 100,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestValidateCoupon_UnknownCode(t *testing.T) {
	resp := doPostWithAuth(t, "/api/coupon/validate", map[string]any{
		"coupon_code":  "NOSUCHCODE",
		"total_amount": 1000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Message == "" {
		t.Error("error message should not be empty")
	}
}

func TestPlaceOrder(t *testing.T) {
	resp := doPostWithAuth(t, "/api/order", map[string]any{
		"shipping_address": "12 Anna Salai, Chennai",
		"billing_email":    "demo@example.com",
		"items": []map[string]any{
			{"variant_id": "aaaaaaa1-0000-0000-0000-000000000002", "quantity": 2},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.Status != "placed" {
		t.Errorf("order status = %q, want placed", o.Status)
	}
	if math.Abs(o.TotalAmount-998.00) > 0.001 {
		t.Errorf("total = %v, want 998.00", o.TotalAmount)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	// The olive joggers size L variant is seeded with stock 5.
	resp := doPostWithAuth(t, "/api/order", map[string]any{
		"shipping_address": "somewhere",
		"billing_email":    "demo@example.com",
		"items": []map[string]any{
			{"variant_id": "aaaaaaa4-0000-0000-0000-000000000002", "quantity": 100},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestUnauthorizedWithoutAPIKey(t *testing.T) {
	resp := doPost(t, "/api/shipping/calculate", map[string]any{
		"location":  "Chennai",
		"weight_kg": 1.0,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
