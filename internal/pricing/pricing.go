package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// RateSource resolves a state to a sales tax rate.
type RateSource interface {
	Rate(state string) decimal.Decimal
}

// Input is everything needed to price an order.
type Input struct {
	Items    []schema.LineItem
	Shipping decimal.Decimal
	State    string
	// Discount is the already-evaluated promotion discount; zero when none applies.
	Discount decimal.Decimal
}

// Subtotal returns Σ(unit price × quantity) over items.
func Subtotal(items []schema.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Compute prices an order deterministically.
// tax = round2(subtotal × rate(state)) on the undiscounted subtotal,
// total = subtotal + shipping + tax − discount, clamped at 0.
// Negative shipping or discount inputs are treated as zero.
func Compute(in Input, rates RateSource) schema.Totals {
	subtotal := Subtotal(in.Items)
	shipping := nonNegative(in.Shipping)
	discount := nonNegative(in.Discount)
	rate := rates.Rate(in.State)
	tax := Round(subtotal.Mul(rate))

	total := subtotal.Add(shipping).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return schema.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		TaxRate:  rate,
		Tax:      tax,
		Discount: discount,
		Total:    Round(total),
	}
}

// Round rounds an amount to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
