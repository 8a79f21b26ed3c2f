package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/tax"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(id, price string, qty int) schema.LineItem {
	return schema.LineItem{ProductID: id, UnitPrice: d(price), Quantity: qty}
}

func TestSubtotal(t *testing.T) {
	items := []schema.LineItem{item("a", "2.50", 4), item("b", "0.99", 3)}
	got := Subtotal(items)
	if !got.Equal(d("12.97")) {
		t.Errorf("Subtotal = %s, want 12.97", got)
	}
	if !Subtotal(nil).IsZero() {
		t.Error("Subtotal(nil) should be zero")
	}
}

func TestCompute_TexasVector(t *testing.T) {
	in := Input{Items: []schema.LineItem{item("a", "100", 1)}, State: "Texas"}
	got := Compute(in, tax.Default())
	if !got.Tax.Equal(d("6.25")) {
		t.Errorf("Tax = %s, want 6.25", got.Tax)
	}
	if !got.Total.Equal(d("106.25")) {
		t.Errorf("Total = %s, want 106.25", got.Total)
	}
}

func TestCompute_FullBreakdown(t *testing.T) {
	in := Input{
		Items:    []schema.LineItem{item("a", "25", 2), item("b", "12.5", 4)},
		Shipping: d("5.99"),
		State:    "CA",
		Discount: d("10"),
	}
	got := Compute(in, tax.Default())
	// subtotal 100, tax 7.25, total 100 + 5.99 + 7.25 - 10 = 103.24
	if !got.Subtotal.Equal(d("100")) {
		t.Errorf("Subtotal = %s, want 100", got.Subtotal)
	}
	if !got.Total.Equal(d("103.24")) {
		t.Errorf("Total = %s, want 103.24", got.Total)
	}
}

func TestCompute_ClampsAtZero(t *testing.T) {
	in := Input{Items: []schema.LineItem{item("a", "5", 1)}, State: "OR", Discount: d("50")}
	got := Compute(in, tax.Default())
	if !got.Total.IsZero() {
		t.Errorf("Total = %s, want 0 (clamped)", got.Total)
	}
}

func TestCompute_RoundsTax(t *testing.T) {
	// 9.99 * 0.06875 = 0.68681... -> 0.69
	in := Input{Items: []schema.LineItem{item("a", "9.99", 1)}, State: "Minnesota"}
	got := Compute(in, tax.Default())
	if !got.Tax.Equal(d("0.69")) {
		t.Errorf("Tax = %s, want 0.69", got.Tax)
	}
}

func TestCompute_OrderIndependent(t *testing.T) {
	a := []schema.LineItem{item("a", "3.33", 3), item("b", "1.11", 7), item("c", "20", 1)}
	b := []schema.LineItem{a[2], a[0], a[1]}
	ta := Compute(Input{Items: a, State: "NJ", Shipping: d("4")}, tax.Default())
	tb := Compute(Input{Items: b, State: "NJ", Shipping: d("4")}, tax.Default())
	if !ta.Total.Equal(tb.Total) || !ta.Tax.Equal(tb.Tax) {
		t.Errorf("totals depend on item order: %+v vs %+v", ta, tb)
	}
}

func TestCompute_NegativeInputsIgnored(t *testing.T) {
	in := Input{Items: []schema.LineItem{item("a", "10", 1)}, State: "OR", Shipping: d("-3"), Discount: d("-2")}
	got := Compute(in, tax.Default())
	if !got.Total.Equal(d("10")) {
		t.Errorf("Total = %s, want 10", got.Total)
	}
}
