package promo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

var now = time.Date(2026, time.May, 5, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func order(subtotal string) Order {
	return Order{
		Items:    []schema.LineItem{{ProductID: "tamales", UnitPrice: d(subtotal), Quantity: 1}},
		Shipping: d("7.50"),
		State:    "TX",
		Now:      now,
	}
}

func TestDiscount_PercentageVector(t *testing.T) {
	p := schema.Promotion{Code: "SAVE10", Type: schema.PromotionPercentage, Value: d("10"), MinPurchase: d("50"), Active: true}
	got, err := Discount(p, order("100"))
	if err != nil {
		t.Fatalf("Discount: %v", err)
	}
	if !got.Equal(d("10")) {
		t.Errorf("discount = %s, want 10", got)
	}
}

func TestDiscount_MinimumNotMet(t *testing.T) {
	p := schema.Promotion{Code: "SAVE10", Type: schema.PromotionPercentage, Value: d("10"), MinPurchase: d("50"), Active: true}
	got, err := Discount(p, order("49.99"))
	if !errors.Is(err, ErrMinimumNotMet) {
		t.Fatalf("expected ErrMinimumNotMet, got %v", err)
	}
	if !got.IsZero() {
		t.Errorf("discount = %s, want 0", got)
	}
}

func TestDiscount_UsageLimitExhausted(t *testing.T) {
	p := schema.Promotion{Code: "ONCE", Type: schema.PromotionFixed, Value: d("5"), UsageLimit: 3, UsageCount: 3, Active: true}
	got, err := Discount(p, order("20"))
	if !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}
	if !got.IsZero() {
		t.Errorf("discount = %s, want 0", got)
	}
}

func TestDiscount_UnlimitedUsage(t *testing.T) {
	p := schema.Promotion{Code: "ALWAYS", Type: schema.PromotionFixed, Value: d("5"), UsageCount: 1000, Active: true}
	if _, err := Discount(p, order("20")); err != nil {
		t.Errorf("usage_limit 0 should mean unlimited, got %v", err)
	}
}

func TestDiscount_FixedCappedAtSubtotal(t *testing.T) {
	p := schema.Promotion{Code: "BIG", Type: schema.PromotionFixed, Value: d("25"), Active: true}
	got, err := Discount(p, order("12"))
	if err != nil {
		t.Fatalf("Discount: %v", err)
	}
	if !got.Equal(d("12")) {
		t.Errorf("discount = %s, want 12", got)
	}
}

func TestDiscount_FreeShipping(t *testing.T) {
	p := schema.Promotion{Code: "ENVIO", Type: schema.PromotionFreeShipping, Active: true}
	got, err := Discount(p, order("30"))
	if err != nil {
		t.Fatalf("Discount: %v", err)
	}
	if !got.Equal(d("7.50")) {
		t.Errorf("discount = %s, want shipping 7.50", got)
	}
}

func TestEligible_Window(t *testing.T) {
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)
	p := schema.Promotion{Code: "SOON", Type: schema.PromotionFixed, Value: d("1"), Active: true, StartsAt: &future}
	if err := Eligible(p, order("10")); !errors.Is(err, ErrNotActive) {
		t.Errorf("not-yet-started promotion: got %v", err)
	}
	p = schema.Promotion{Code: "OVER", Type: schema.PromotionFixed, Value: d("1"), Active: true, EndsAt: &past}
	if err := Eligible(p, order("10")); !errors.Is(err, ErrNotActive) {
		t.Errorf("ended promotion: got %v", err)
	}
	p = schema.Promotion{Code: "OFF", Type: schema.PromotionFixed, Value: d("1")}
	if err := Eligible(p, order("10")); !errors.Is(err, ErrNotActive) {
		t.Errorf("inactive promotion: got %v", err)
	}
}

func TestEligible_Condition(t *testing.T) {
	p := schema.Promotion{
		Code: "TEJAS", Type: schema.PromotionPercentage, Value: d("5"), Active: true,
		Condition: `state == "TX" && "tamales" in products`,
	}
	if err := Eligible(p, order("10")); err != nil {
		t.Errorf("condition should match: %v", err)
	}
	o := order("10")
	o.State = "CA"
	if err := Eligible(p, o); !errors.Is(err, ErrConditionNotMet) {
		t.Errorf("expected ErrConditionNotMet, got %v", err)
	}
}

func TestEligible_QuantityCondition(t *testing.T) {
	p := schema.Promotion{Code: "BULK", Type: schema.PromotionFixed, Value: d("3"), Active: true, Condition: "quantity >= 6"}
	o := order("2")
	o.Items[0].Quantity = 6
	if err := Eligible(p, o); err != nil {
		t.Errorf("quantity condition should match: %v", err)
	}
}

func TestCheckCondition(t *testing.T) {
	if err := CheckCondition("subtotal > 20"); err != nil {
		t.Errorf("valid condition rejected: %v", err)
	}
	if err := CheckCondition("subtotal +"); err == nil {
		t.Error("expected syntax error")
	}
	if err := CheckCondition("subtotal"); err == nil {
		t.Error("expected error for non-boolean condition")
	}
	if err := CheckCondition(""); err != nil {
		t.Errorf("empty condition should be accepted: %v", err)
	}
}
