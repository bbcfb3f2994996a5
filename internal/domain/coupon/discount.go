package coupon

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
	zero    = decimal.Zero
)

// Apply calculates the discount for the given rule against the cart items.
// The result is rounded to 2 fraction digits once, at the end. Eligibility
// (validity window, usage limit, minimum order amount) is the Validator's
// job; Apply is pure discount math.
func Apply(rule *Rule, items []Item) (Discount, error) {
	switch rule.DiscountType {
	case DiscountPercentage:
		return applyPercentage(rule, subtotal(items)), nil
	case DiscountFixed:
		return applyFixed(rule, subtotal(items)), nil
	case DiscountBogoHalf:
		return applyBogoHalf(rule, items), nil
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.DiscountType)
	}
}

// applyPercentage discounts subtotal * value / 100, never exceeding the
// subtotal itself.
func applyPercentage(rule *Rule, subtotal decimal.Decimal) Discount {
	amount := subtotal.Mul(rule.Value).Div(hundred)
	amount = decimal.Min(amount, subtotal)

	return Discount{
		Amount:      floorAtZero(amount).Round(2),
		Description: rule.Code,
	}
}

// applyFixed discounts a flat amount, capped at the subtotal.
func applyFixed(rule *Rule, subtotal decimal.Decimal) Discount {
	amount := decimal.Min(rule.Value, subtotal)

	return Discount{
		Amount:      floorAtZero(amount).Round(2),
		Description: rule.Code,
	}
}

// applyBogoHalf implements buy-one-get-one-50%-off over the rule's applicable
// product set. For each applicable product in the cart, unit prices are
// expanded across all matching lines (price repeated quantity times), sorted
// ascending, and every second unit (0-indexed positions 1, 3, 5, ...) gets
// 50% off. Non-applicable lines are untouched.
func applyBogoHalf(rule *Rule, items []Item) Discount {
	applicable := make(map[string]bool, len(rule.ApplicableProducts))
	for _, id := range rule.ApplicableProducts {
		applicable[id] = true
	}

	perUnit := make(map[string][]decimal.Decimal)
	for _, item := range items {
		if !applicable[item.ProductID] {
			continue
		}
		for range item.Quantity {
			perUnit[item.ProductID] = append(perUnit[item.ProductID], item.Price)
		}
	}

	discount := zero
	for _, prices := range perUnit {
		sort.Slice(prices, func(i, j int) bool {
			return prices[i].LessThan(prices[j])
		})
		for i := 1; i < len(prices); i += 2 {
			discount = discount.Add(prices[i].Mul(half))
		}
	}

	return Discount{
		Amount:      discount.Round(2),
		Description: rule.Code,
	}
}

// subtotal returns the sum of price * quantity across all items.
func subtotal(items []Item) decimal.Decimal {
	sum := zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
