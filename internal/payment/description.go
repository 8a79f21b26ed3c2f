package payment

import (
	"fmt"
	"strings"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/cart"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// storeName prefixes every charge description.
const storeName = "Delicias de mi Patria"

// Description builds the human-readable charge description shown in the
// gateway dashboard: store name, order number, unit count and up to three
// product names.
func Description(o *schema.Order) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s order %s (%d items)", storeName, o.Number, cart.Count(o.Items))
	names := make([]string, 0, 3)
	for _, it := range o.Items {
		if it.Name == "" {
			continue
		}
		if len(names) == 3 {
			names = append(names, "...")
			break
		}
		names = append(names, it.Name)
	}
	if len(names) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(names, ", "))
	}
	return truncate(sb.String(), 350)
}

// NewChargeRequest builds the gateway request for a priced order.
func NewChargeRequest(o *schema.Order, req *schema.CheckoutRequest) *ChargeRequest {
	return &ChargeRequest{
		OrderID:     o.ID,
		Amount:      o.Totals.Total,
		Currency:    "usd",
		Method:      req.PaymentMethod,
		Card:        req.Card,
		PayPalToken: req.PayPalToken,
		Description: Description(o),
		Email:       o.Customer.Email,
	}
}
