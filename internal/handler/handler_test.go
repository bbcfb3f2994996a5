package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremewear/checkout-api/internal/domain/auth"
	"github.com/extremewear/checkout-api/internal/domain/cart"
	"github.com/extremewear/checkout-api/internal/domain/coupon"
	"github.com/extremewear/checkout-api/internal/domain/order"
	"github.com/extremewear/checkout-api/internal/domain/payment"
	"github.com/extremewear/checkout-api/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	items []cart.Item
}

func (m *mockCartRepo) Items(_ context.Context, _ string) ([]cart.Item, error) {
	return m.items, nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error { return nil }

type mockProductRepo struct {
	variants map[string]product.VariantDetail
}

func (m *mockProductRepo) GetByID(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetVariants(_ context.Context, ids []string) ([]product.VariantDetail, error) {
	var out []product.VariantDetail
	for _, id := range ids {
		if vd, ok := m.variants[id]; ok {
			out = append(out, vd)
		}
	}
	return out, nil
}

type mockCouponValidator struct {
	discount *coupon.Discount
	err      error
}

func (m *mockCouponValidator) Validate(_ context.Context, _, _ string, _ []coupon.Item) (*coupon.Discount, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.discount, nil
}

type mockOrderRepo struct {
	lastOrder *order.Order
	createErr error
}

func (m *mockOrderRepo) CreateReserved(_ context.Context, o *order.Order, _ bool) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) FindByGatewayOrderRef(_ context.Context, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) RecordCapture(_ context.Context, _, _, _ string) (bool, error) {
	return true, nil
}

func (m *mockOrderRepo) CountSettledOrders(_ context.Context, _ string) (int, error) {
	return 0, nil
}

type mockUserDirectory struct{}

func (m *mockUserDirectory) GetProfile(_ context.Context, _ string) (*order.UserProfile, error) {
	return &order.UserProfile{Email: "u@x.in", Address: "5 Mount Road, Chennai"}, nil
}

type mockGateway struct{}

func (m *mockGateway) CreateOrder(_ context.Context, amount int64, currency string) (*payment.GatewayOrder, error) {
	return &payment.GatewayOrder{ID: "order_gw1", Amount: amount, Currency: currency}, nil
}

type mockAPIKeyRepo struct {
	info *auth.APIKeyInfo
	err  error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// --- Helpers ---

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type handlerDeps struct {
	carts   *mockCartRepo
	coupons *mockCouponValidator
	orders  *mockOrderRepo
}

func newTestHandler(deps handlerDeps) *Handler {
	if deps.carts == nil {
		deps.carts = &mockCartRepo{}
	}
	if deps.coupons == nil {
		deps.coupons = &mockCouponValidator{}
	}
	if deps.orders == nil {
		deps.orders = &mockOrderRepo{}
	}
	products := &mockProductRepo{variants: map[string]product.VariantDetail{
		"v1": {
			Variant: product.Variant{ID: "v1", ProductID: "p1", Size: "M", Stock: 5},
			Product: product.Product{ID: "p1", Name: "Tee", Price: d("499.00")},
		},
	}}

	svc := order.NewService(deps.carts, products, deps.coupons, deps.orders,
		&mockUserDirectory{}, &mockGateway{}, payment.NewVerifier([]byte("secret")), "INR")
	return NewHandler(svc)
}

func doRequest(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestPlaceOrderEndpoint(t *testing.T) {
	orders := &mockOrderRepo{}
	h := newTestHandler(handlerDeps{orders: orders})

	rec := doRequest(t, h, http.MethodPost, "/api/order",
		`{"shipping_address":"12 Anna Salai","billing_email":"a@b.c","items":[{"variant_id":"v1","quantity":2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Regexp(t, `^ORD[0-9A-F]{10}$`, resp.Code)
	assert.InDelta(t, 998.00, resp.TotalAmount, 0.001)
	require.NotNil(t, orders.lastOrder)
}

func TestPlaceOrderEndpoint_EmptyItems(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/order",
		`{"shipping_address":"12 Anna Salai","billing_email":"a@b.c","items":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrderEndpoint_UnknownVariant(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/order",
		`{"shipping_address":"x","billing_email":"a@b.c","items":[{"variant_id":"nope","quantity":1}]}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrderEndpoint_InsufficientStock(t *testing.T) {
	orders := &mockOrderRepo{createErr: &order.InsufficientStockError{
		VariantID: "v1", Requested: 2, Available: 1,
	}}
	h := newTestHandler(handlerDeps{orders: orders})

	rec := doRequest(t, h, http.MethodPost, "/api/order",
		`{"shipping_address":"x","billing_email":"a@b.c","items":[{"variant_id":"v1","quantity":2}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutCODEndpoint(t *testing.T) {
	carts := &mockCartRepo{items: []cart.Item{
		{VariantID: "v1", ProductID: "p1", UnitPrice: d("499.00"), Quantity: 1},
	}}
	h := newTestHandler(handlerDeps{carts: carts})

	rec := doRequest(t, h, http.MethodPost, "/api/checkout/cod", `{}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cod", resp.Order.PaymentMethod)
	assert.Nil(t, resp.Gateway)
}

func TestCheckoutOnlineEndpoint(t *testing.T) {
	carts := &mockCartRepo{items: []cart.Item{
		{VariantID: "v1", ProductID: "p1", UnitPrice: d("499.00"), Quantity: 1},
	}}
	h := newTestHandler(handlerDeps{carts: carts})

	rec := doRequest(t, h, http.MethodPost, "/api/checkout/online", `{}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Gateway)
	assert.Equal(t, int64(49900), resp.Gateway.Amount)
	assert.Equal(t, "INR", resp.Gateway.Currency)
}

func TestCheckoutEndpoint_EmptyCart(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/checkout/cod", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutEndpoint_InvalidCoupon(t *testing.T) {
	carts := &mockCartRepo{items: []cart.Item{
		{VariantID: "v1", ProductID: "p1", UnitPrice: d("499.00"), Quantity: 1},
	}}
	h := newTestHandler(handlerDeps{
		carts:   carts,
		coupons: &mockCouponValidator{err: coupon.ErrInvalidCoupon},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/checkout/cod", `{"coupon_code":"BOGUS"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVerifyPaymentEndpoint_BadSignature(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/payment/verify",
		`{"gateway_order_id":"order_gw1","gateway_payment_id":"pay_1","signature":"deadbeef"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateCouponEndpoint(t *testing.T) {
	h := newTestHandler(handlerDeps{
		coupons: &mockCouponValidator{discount: &coupon.Discount{Amount: d("100.00")}},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/coupon/validate",
		`{"coupon_code":"SAVE100","total_amount":1000}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp validateCouponResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.InDelta(t, 100.00, resp.Discount, 0.001)
	assert.InDelta(t, 900.00, resp.FinalTotal, 0.001)
}

func TestValidateCouponEndpoint_MinimumNotMet(t *testing.T) {
	h := newTestHandler(handlerDeps{
		coupons: &mockCouponValidator{err: coupon.ErrMinimumNotMet},
	})

	rec := doRequest(t, h, http.MethodPost, "/api/coupon/validate",
		`{"coupon_code":"BIG","total_amount":10}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalculateShippingEndpoint(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/shipping/calculate",
		`{"location":"Bengaluru","weight_kg":6.0}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp calculateShippingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 70.00, resp.ShippingCost, 0.001)
}

func TestCalculateShippingEndpoint_NegativeWeight(t *testing.T) {
	h := newTestHandler(handlerDeps{})

	rec := doRequest(t, h, http.MethodPost, "/api/shipping/calculate",
		`{"location":"Chennai","weight_kg":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Security middleware ---

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("pepper")
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte("secret-key"))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	repo := &mockAPIKeyRepo{info: &auth.APIKeyInfo{
		ID:      "k1",
		UserID:  "u1",
		KeyHash: keyHash,
	}}

	var gotUser string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := APIKeyAuth(repo, pepper)(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("api_key", "secret-key")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotUser)
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	protected := APIKeyAuth(&mockAPIKeyRepo{}, []byte("pepper"))(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_WrongKey(t *testing.T) {
	pepper := []byte("pepper")
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte("the-real-key"))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	repo := &mockAPIKeyRepo{info: &auth.APIKeyInfo{ID: "k1", UserID: "u1", KeyHash: keyHash}}
	protected := APIKeyAuth(repo, pepper)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
	))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("api_key", "some-other-key")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
