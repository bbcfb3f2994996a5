package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/extremewear/checkout-api/internal/domain/cart"
	"github.com/extremewear/checkout-api/internal/domain/coupon"
	"github.com/extremewear/checkout-api/internal/domain/payment"
	"github.com/extremewear/checkout-api/internal/domain/pricing"
	"github.com/extremewear/checkout-api/internal/domain/product"
)

// Service encapsulates the checkout pipeline: pricing, coupon application,
// reservation, order assembly, and payment reconciliation. Identity is always
// an explicit userID argument, never ambient state.
type Service struct {
	carts    cart.Repository
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	users    UserDirectory
	gateway  payment.Gateway
	verifier *payment.Verifier
	currency string

	newOrderCode func() string
}

// NewService creates an order Service with the required collaborators.
func NewService(
	carts cart.Repository,
	products product.Repository,
	coupons coupon.Validator,
	orders Repository,
	users UserDirectory,
	gateway payment.Gateway,
	verifier *payment.Verifier,
	currency string,
) *Service {
	return &Service{
		carts:        carts,
		products:     products,
		coupons:      coupons,
		orders:       orders,
		users:        users,
		gateway:      gateway,
		verifier:     verifier,
		currency:     currency,
		newOrderCode: NewOrderCode,
	}
}

// PlaceOrderRequest holds the input for direct order placement with an
// explicit item list.
type PlaceOrderRequest struct {
	ShippingAddress string
	BillingEmail    string
	Items           []ItemRequest
}

// ItemRequest is one requested line: a variant plus a quantity.
type ItemRequest struct {
	VariantID string
	Quantity  int
}

// PlaceOrder creates an order from an explicit item list. Stock for every
// line is reserved atomically; a single unsatisfiable line rolls back the
// whole order. Prices are snapshotted from the current catalog.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*Order, error) {
	if req.ShippingAddress == "" {
		return nil, ErrShippingAddressRequired
	}
	if req.BillingEmail == "" {
		return nil, ErrBillingEmailRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{VariantID: item.VariantID}
		}
		ids[i] = item.VariantID
	}

	details, err := s.products.GetVariants(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}

	byID := make(map[string]product.VariantDetail, len(details))
	for _, vd := range details {
		byID[vd.Variant.ID] = vd
	}

	items := make([]Item, len(req.Items))
	lines := make([]pricing.LineItem, len(req.Items))
	for i, reqItem := range req.Items {
		vd, ok := byID[reqItem.VariantID]
		if !ok {
			return nil, product.ErrVariantNotFound
		}
		items[i] = Item{
			ProductID: vd.Product.ID,
			VariantID: vd.Variant.ID,
			Quantity:  reqItem.Quantity,
			UnitPrice: vd.Product.Price,
			Size:      vd.Variant.Size,
		}
		lines[i] = pricing.LineItem{UnitPrice: vd.Product.Price, Quantity: reqItem.Quantity}
	}

	o := &Order{
		Code:            s.newOrderCode(),
		UserID:          userID,
		Status:          StatusPlaced,
		PaymentMethod:   MethodOnline,
		TotalAmount:     pricing.Payable(pricing.Subtotal(lines), decimal.Zero),
		DiscountAmount:  decimal.Zero,
		ShippingAddress: req.ShippingAddress,
		BillingEmail:    req.BillingEmail,
		Items:           items,
	}

	if err := s.orders.CreateReserved(ctx, o, false); err != nil {
		return nil, err
	}

	return o, nil
}

// CheckoutRequest holds the input for a cart-based checkout.
type CheckoutRequest struct {
	CouponCode string
	Method     PaymentMethod
}

// CheckoutResult is the outcome of a cart-based checkout. GatewayOrder is
// nil for cash-on-delivery orders.
type CheckoutResult struct {
	Order        *Order
	GatewayOrder *payment.GatewayOrder
}

// Checkout creates an order from the user's current cart, applying an
// optional coupon. Every entry point shares the same reservation discipline:
// stock is locked, checked, and decremented inside the creation transaction.
//
// COD orders clear the cart immediately. Online orders get an external
// gateway order first and keep the cart until payment is confirmed, so an
// abandoned payment leaves the cart usable.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	if req.Method != MethodOnline && req.Method != MethodCOD {
		return nil, errors.Errorf("unsupported payment method: %q", req.Method)
	}

	cartItems, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, cart.ErrEmpty
	}

	lines := make([]pricing.LineItem, len(cartItems))
	couponItems := make([]coupon.Item, len(cartItems))
	items := make([]Item, len(cartItems))
	for i, ci := range cartItems {
		lines[i] = pricing.LineItem{UnitPrice: ci.UnitPrice, Quantity: ci.Quantity}
		couponItems[i] = coupon.Item{
			ProductID: ci.ProductID,
			Price:     ci.UnitPrice,
			Quantity:  ci.Quantity,
		}
		items[i] = Item{
			ProductID: ci.ProductID,
			VariantID: ci.VariantID,
			Quantity:  ci.Quantity,
			UnitPrice: ci.UnitPrice,
			Size:      ci.Size,
		}
	}

	subtotal := pricing.Subtotal(lines)

	discount := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, userID, couponItems)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		couponCode = req.CouponCode
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get user profile")
	}
	shippingAddress := profile.Address
	if shippingAddress == "" {
		shippingAddress = "Address not provided"
	}

	o := &Order{
		Code:            s.newOrderCode(),
		UserID:          userID,
		Status:          StatusPlaced,
		PaymentMethod:   req.Method,
		TotalAmount:     pricing.Payable(subtotal, discount),
		DiscountAmount:  discount.Round(2),
		CouponCode:      couponCode,
		ShippingAddress: shippingAddress,
		BillingEmail:    profile.Email,
		Items:           items,
	}

	var gw *payment.GatewayOrder
	if req.Method == MethodOnline {
		gw, err = s.gateway.CreateOrder(ctx, pricing.MinorUnits(o.TotalAmount), s.currency)
		if err != nil {
			return nil, errors.Wrap(err, "create gateway order")
		}
		o.GatewayOrderID = gw.ID
	}

	clearCart := req.Method == MethodCOD
	if err := s.orders.CreateReserved(ctx, o, clearCart); err != nil {
		return nil, err
	}

	return &CheckoutResult{Order: o, GatewayOrder: gw}, nil
}

// ConfirmPaymentRequest carries an external payment confirmation.
type ConfirmPaymentRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// ConfirmPayment verifies the confirmation's HMAC signature and records the
// captured payment. A mismatched signature leaves the order unpaid.
// Replaying the same confirmation is a no-op success: exactly one payment
// row exists per (order, gateway payment ref).
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) (*Order, error) {
	if !s.verifier.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		return nil, payment.ErrInvalidSignature
	}

	o, err := s.orders.FindByGatewayOrderRef(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.orders.RecordCapture(ctx, o.Code, req.GatewayPaymentID, req.Signature); err != nil {
		return nil, errors.Wrap(err, "record payment capture")
	}
	o.Paid = true

	return o, nil
}

// CouponQuote is the result of a standalone coupon validation against a
// total amount.
type CouponQuote struct {
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
}

// QuoteCoupon validates a coupon code against a plain order total, outside
// any cart. BOGO rules need line items to produce a discount, so they quote
// zero here while still passing the eligibility checks.
func (s *Service) QuoteCoupon(ctx context.Context, userID, code string, total decimal.Decimal) (*CouponQuote, error) {
	items := []coupon.Item{{Price: total, Quantity: 1}}

	d, err := s.coupons.Validate(ctx, code, userID, items)
	if err != nil {
		return nil, err
	}

	return &CouponQuote{
		Discount:   d.Amount,
		FinalTotal: pricing.Payable(total, d.Amount),
	}, nil
}
