// Package pricing holds the money arithmetic for the checkout pipeline.
// All amounts are exact decimals; rounding to 2 fraction digits happens once,
// at the end of a computation, never per line.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineItem is the minimal shape the pricing engine needs: a unit price and a
// quantity.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns the sum of unit price times quantity across all items,
// unrounded.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		sum = sum.Add(item.UnitPrice.Mul(qty))
	}
	return sum
}

// Payable returns subtotal minus discount, clamped at zero and rounded
// half-up to 2 fraction digits.
func Payable(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// MinorUnits converts a decimal amount into the smallest currency unit
// (paise for INR) as an integer, truncating any sub-unit remainder. Payment
// gateways only accept integer minor-unit amounts.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).IntPart()
}
