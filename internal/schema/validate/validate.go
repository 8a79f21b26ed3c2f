package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	keyPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	hundred      = decimal.NewFromInt(100)
)

// ParseCheckout unmarshals a checkout request body and validates it against
// the current time (card expiry).
func ParseCheckout(raw []byte, now time.Time) (*schema.CheckoutRequest, error) {
	var req schema.CheckoutRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}
	if err := Checkout(&req, now); err != nil {
		return nil, err
	}
	return &req, nil
}

// Checkout validates the structure of a checkout request. Items may be empty
// only when a cart id is given.
func Checkout(req *schema.CheckoutRequest, now time.Time) error {
	if err := validateCustomer(req.Customer); err != nil {
		return err
	}
	if err := validateAddress(req.ShippingAddress); err != nil {
		return err
	}
	if req.CartID == "" && len(req.Items) == 0 {
		return fmt.Errorf("items: at least one item is required")
	}
	if err := Items(req.Items); err != nil {
		return err
	}
	if strings.TrimSpace(req.ShippingOptionID) == "" {
		return fmt.Errorf("shipping_option_id is required")
	}
	if !schema.IsValidPaymentMethod(req.PaymentMethod) {
		return fmt.Errorf("payment_method %q must be card, paypal, or cash", req.PaymentMethod)
	}
	switch req.PaymentMethod {
	case schema.PaymentCard:
		if req.Card == nil {
			return fmt.Errorf("card: details are required for card payments")
		}
		if err := validateCard(*req.Card, now); err != nil {
			return err
		}
	case schema.PaymentPayPal:
		if req.PayPalToken == "" {
			return fmt.Errorf("paypal_token is required for paypal payments")
		}
	}
	return nil
}

// Items validates cart or order lines: positive quantities, non-negative
// prices and no duplicate products.
func Items(items []schema.LineItem) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.ProductID == "" {
			return fmt.Errorf("%s: product_id is required", prefix)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%s: quantity %d must be ≥ 1", prefix, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%s: unit_price %s must be ≥ 0", prefix, it.UnitPrice)
		}
		if seen[it.ProductID] {
			return fmt.Errorf("%s: duplicate product_id %q", prefix, it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

func validateCustomer(c schema.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("customer: name is required")
	}
	if !emailPattern.MatchString(c.Email) {
		return fmt.Errorf("customer: email %q is not a valid address", c.Email)
	}
	return nil
}

func validateAddress(a schema.Address) error {
	prefix := "shipping_address"
	switch {
	case strings.TrimSpace(a.Line1) == "":
		return fmt.Errorf("%s: line1 is required", prefix)
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%s: city is required", prefix)
	case strings.TrimSpace(a.State) == "":
		return fmt.Errorf("%s: state is required", prefix)
	case strings.TrimSpace(a.PostalCode) == "":
		return fmt.Errorf("%s: postal_code is required", prefix)
	}
	return nil
}

func validateCard(c schema.CardDetails, now time.Time) error {
	digits := CardDigits(c.Number)
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("card: number must have 12 to 19 digits")
	}
	if !luhn(digits) {
		return fmt.Errorf("card: number fails checksum")
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return fmt.Errorf("card: exp_month %d must be between 1 and 12", c.ExpMonth)
	}
	// A card is valid through the last day of its expiry month.
	expiry := time.Date(c.ExpYear, time.Month(c.ExpMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expiry) {
		return fmt.Errorf("card: expired %02d/%d", c.ExpMonth, c.ExpYear)
	}
	if n := len(c.CVC); n < 3 || n > 4 || !allDigits(c.CVC) {
		return fmt.Errorf("card: cvc must have 3 or 4 digits")
	}
	return nil
}

// CardDigits strips spaces and dashes from a card number. Any other
// non-digit character makes the result empty.
func CardDigits(number string) string {
	var sb strings.Builder
	for _, r := range number {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return ""
		}
	}
	return sb.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Product validates an admin product record.
func Product(p schema.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product: name is required")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product: price %s must be ≥ 0", p.Price)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product: stock %d must be ≥ 0", p.Stock)
	}
	return nil
}

// Category validates an admin category record.
func Category(c schema.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category: name is required")
	}
	if !slugPattern.MatchString(c.Slug) {
		return fmt.Errorf("category: slug %q must be lowercase words joined by dashes", c.Slug)
	}
	return nil
}

// ShippingOption validates an admin shipping option.
func ShippingOption(s schema.ShippingOption) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("shipping option: name is required")
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("shipping option: price %s must be ≥ 0", s.Price)
	}
	if s.EstimatedDays < 0 {
		return fmt.Errorf("shipping option: estimated_days %d must be ≥ 0", s.EstimatedDays)
	}
	return nil
}

// Promotion validates an admin promotion record.
func Promotion(p schema.Promotion) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("promotion: code is required")
	}
	if !schema.IsValidPromotionType(p.Type) {
		return fmt.Errorf("promotion %s: type %q must be percentage, fixed, or free_shipping", p.Code, p.Type)
	}
	switch p.Type {
	case schema.PromotionPercentage:
		if !p.Value.IsPositive() || p.Value.GreaterThan(hundred) {
			return fmt.Errorf("promotion %s: percentage %s must be in (0, 100]", p.Code, p.Value)
		}
	case schema.PromotionFixed:
		if !p.Value.IsPositive() {
			return fmt.Errorf("promotion %s: fixed value %s must be > 0", p.Code, p.Value)
		}
	}
	if p.MinPurchase.IsNegative() {
		return fmt.Errorf("promotion %s: min_purchase %s must be ≥ 0", p.Code, p.MinPurchase)
	}
	if p.UsageLimit < 0 {
		return fmt.Errorf("promotion %s: usage_limit %d must be ≥ 0", p.Code, p.UsageLimit)
	}
	if p.UsageLimit > 0 && p.UsageCount > p.UsageLimit {
		return fmt.Errorf("promotion %s: usage_count %d exceeds usage_limit %d", p.Code, p.UsageCount, p.UsageLimit)
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		return fmt.Errorf("promotion %s: ends_at must be after starts_at", p.Code)
	}
	return nil
}

// ContentBlock validates an admin content block.
func ContentBlock(b schema.ContentBlock) error {
	if !keyPattern.MatchString(b.Key) {
		return fmt.Errorf("content: key %q must be lowercase letters, digits, dashes or underscores", b.Key)
	}
	return nil
}
