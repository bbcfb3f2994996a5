//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"testing"
)

func TestCheckoutCOD_ClearsCart(t *testing.T) {
	resp := doPostAs(t, "-cod", "/api/checkout/cod", map[string]any{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	res := decodeJSON[checkoutResponse](t, resp)
	if res.Order.PaymentMethod != "cod" {
		t.Errorf("payment method = %q, want cod", res.Order.PaymentMethod)
	}
	if math.Abs(res.Order.TotalAmount-1299.00) > 0.001 {
		t.Errorf("total = %v, want 1299.00", res.Order.TotalAmount)
	}
	if res.Order.Paid {
		t.Error("COD order must not be marked paid at creation")
	}
	if res.Gateway != nil {
		t.Error("COD checkout must not create a gateway order")
	}

	// The cart was emptied inside the placement transaction, so a second
	// checkout has nothing to buy.
	again := doPostAs(t, "-cod", "/api/checkout/cod", map[string]any{})
	defer again.Body.Close()

	if again.StatusCode != http.StatusBadRequest {
		t.Fatalf("second checkout status = %d, want 400", again.StatusCode)
	}
}

func TestCheckoutCoupon_SingleUseRace(t *testing.T) {
	// EARLYBIRD is seeded with usage_limit 1. Two users race it through COD
	// checkout; the guarded increment lets exactly one through.
	statuses := make([]int, 2)
	var wg sync.WaitGroup
	for i, suffix := range []string{"-racer1", "-racer2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = postStatus(suffix, "/api/checkout/cod", map[string]any{
				"coupon_code": "EARLYBIRD",
			})
		}()
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, code := range statuses {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if created != 1 || rejected != 1 {
		t.Fatalf("got %d created and %d rejected, want exactly 1 of each (statuses %v)",
			created, rejected, statuses)
	}

	var usedCount int
	err := dbPool.QueryRow(context.Background(),
		`SELECT used_count FROM coupons WHERE code = 'EARLYBIRD'`).Scan(&usedCount)
	if err != nil {
		t.Fatalf("query used_count: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("used_count = %d, want 1", usedCount)
	}

	// The exhausted coupon now fails standalone validation too.
	quote := doPostWithAuth(t, "/api/coupon/validate", map[string]any{
		"coupon_code":  "EARLYBIRD",
		"total_amount": 1000,
	})
	defer quote.Body.Close()

	if quote.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("validate after exhaustion status = %d, want 422", quote.StatusCode)
	}
}

func TestVerifyPayment_ReplayIdempotent(t *testing.T) {
	resp := doPostAs(t, "-payer", "/api/checkout/online", map[string]any{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201", resp.StatusCode)
	}

	res := decodeJSON[checkoutResponse](t, resp)
	if res.Gateway == nil {
		t.Fatal("online checkout must return a gateway order")
	}
	if res.Gateway.Amount != 99800 {
		t.Errorf("gateway amount = %d minor units, want 99800", res.Gateway.Amount)
	}
	if res.Order.Paid {
		t.Error("order must not be paid before verification")
	}

	paymentID := "pay_integration_001"
	body := map[string]any{
		"gateway_order_id":   res.Gateway.ID,
		"gateway_payment_id": paymentID,
		"signature":          signPayment(res.Gateway.ID, paymentID),
	}

	for range 2 {
		verify := doPostAs(t, "-payer", "/api/payment/verify", body)

		if verify.StatusCode != http.StatusOK {
			t.Fatalf("verify status = %d, want 200", verify.StatusCode)
		}
		o := decodeJSON[orderResponse](t, verify)
		verify.Body.Close()
		if !o.Paid {
			t.Error("order must be paid after verification")
		}
		if o.Code != res.Order.Code {
			t.Errorf("verify returned order %q, want %q", o.Code, res.Order.Code)
		}
	}

	var payments int
	err := dbPool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM payments WHERE order_code = $1`, res.Order.Code).Scan(&payments)
	if err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if payments != 1 {
		t.Errorf("payments rows = %d, want 1 after replay", payments)
	}

	// Verification also emptied the payer's cart.
	again := doPostAs(t, "-payer", "/api/checkout/cod", map[string]any{})
	defer again.Body.Close()

	if again.StatusCode != http.StatusBadRequest {
		t.Errorf("checkout after payment status = %d, want 400 empty cart", again.StatusCode)
	}
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	resp := doPostWithAuth(t, "/api/payment/verify", map[string]any{
		"gateway_order_id":   "order_stub_000000",
		"gateway_payment_id": "pay_bogus",
		"signature":          "deadbeef",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// signPayment mirrors the gateway's confirmation signature: hex-encoded
// HMAC-SHA256 of "{order_ref}|{payment_ref}" under the shared secret.
func signPayment(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(testPaymentSecret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// postStatus is goroutine-safe: it reports failures through the status code
// instead of the testing.T, which must not be used off the test goroutine.
func postStatus(keySuffix, path string, body any) int {
	data, err := json.Marshal(body)
	if err != nil {
		return 0
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_key", testAPIKey+keySuffix)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	return resp.StatusCode
}
