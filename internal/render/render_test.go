package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleOrder() *schema.Order {
	return &schema.Order{
		ID:              "3f0c",
		Number:          "DMP-1001",
		Customer:        schema.Customer{Name: "Ana Ruiz", Email: "ana@example.com"},
		ShippingAddress: schema.Address{Line1: "12 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
		Items: []schema.LineItem{
			{ProductID: "p-1", Name: "Tamales de pollo", UnitPrice: d("12.50"), Quantity: 2},
			{ProductID: "p-2", UnitPrice: d("3"), Quantity: 1},
		},
		PromotionCode: "SAVE10",
		Totals: schema.Totals{
			Subtotal: d("28"), Shipping: d("5.99"), TaxRate: d("0.0625"),
			Tax: d("1.75"), Discount: d("2.80"), Total: d("32.94"),
		},
		Status:  schema.StatusPending,
		Payment: schema.Payment{Method: schema.PaymentCard, Provider: "mock", Reference: "mock_1", Last4: "4242"},
	}
}

func TestNewRenderer_JSON(t *testing.T) {
	r, err := NewRenderer("json")
	if err != nil {
		t.Fatalf("NewRenderer json: %v", err)
	}
	out, err := r.Render(sampleOrder())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var decoded schema.Order
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, out)
	}
	if !decoded.Totals.Total.Equal(d("32.94")) {
		t.Errorf("total mismatch: got %s", decoded.Totals.Total)
	}
}

func TestNewRenderer_Markdown(t *testing.T) {
	r, err := NewRenderer("md")
	if err != nil {
		t.Fatalf("NewRenderer md: %v", err)
	}
	out, err := r.Render(sampleOrder())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"Order DMP-1001",
		"| Tamales de pollo | 2 | $12.50 | $25.00 |",
		"| p-2 | 1 | $3.00 | $3.00 |",
		"Tax (6.25%)",
		"Discount (SAVE10) | -$2.80",
		"**$32.94**",
		"ending 4242",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown missing %q:\n%s", want, s)
		}
	}
}

func TestMarkdown_QuoteWithoutDiscount(t *testing.T) {
	o := sampleOrder()
	o.Number = ""
	o.Status = ""
	o.Payment = schema.Payment{}
	o.Totals.Discount = decimal.Zero
	r, _ := NewRenderer("md")
	out, err := r.Render(o)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "# Delicias de mi Patria: Quote") {
		t.Errorf("expected quote header: %s", s)
	}
	if strings.Contains(s, "Discount") || strings.Contains(s, "Paid by") {
		t.Errorf("unexpected discount or payment lines: %s", s)
	}
}

func TestNewRenderer_UnknownFormat(t *testing.T) {
	_, err := NewRenderer("xml")
	if err == nil {
		t.Error("expected error for unknown format, got nil")
	}
}
