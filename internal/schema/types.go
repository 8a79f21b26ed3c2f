package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is the unit price in dollars.
type Product struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  string          `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	Active      bool            `json:"active"`
	Featured    bool            `json:"featured"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Category groups products in the storefront navigation.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// ShippingOption is a selectable delivery method with a flat price.
type ShippingOption struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days"`
	Active        bool            `json:"active"`
}

// PromotionType selects how a promotion's Value is interpreted.
type PromotionType string

const (
	PromotionPercentage   PromotionType = "percentage"
	PromotionFixed        PromotionType = "fixed"
	PromotionFreeShipping PromotionType = "free_shipping"
)

// IsValidPromotionType reports whether t is one of the defined promotion types.
func IsValidPromotionType(t PromotionType) bool {
	switch t {
	case PromotionPercentage, PromotionFixed, PromotionFreeShipping:
		return true
	}
	return false
}

// Promotion is a redeemable discount code.
// A UsageLimit of zero means the code can be redeemed without limit.
type Promotion struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Type        PromotionType   `json:"type"`
	Value       decimal.Decimal `json:"value"`
	MinPurchase decimal.Decimal `json:"min_purchase"`
	UsageLimit  int             `json:"usage_limit"`
	UsageCount  int             `json:"usage_count"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	EndsAt      *time.Time      `json:"ends_at,omitempty"`
	Active      bool            `json:"active"`
	// Condition is an optional boolean expression over the order
	// (subtotal, shipping, state, items, quantity).
	Condition string `json:"condition,omitempty"`
}

// ContentBlock is an admin-editable piece of site copy (banner, about page, FAQ).
type ContentBlock struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentRevision records one edit of a ContentBlock as a diff-match-patch text.
type ContentRevision struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Patch     string    `json:"patch"`
	CreatedAt time.Time `json:"created_at"`
}

// Address is a shipping destination.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// Customer identifies who placed an order.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is one product line of a cart or order.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is a server-side shopping cart.
type Cart struct {
	ID        string     `json:"id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Totals is the priced breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// IsValidStatus reports whether s is one of the defined order statuses.
func IsValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentCash   PaymentMethod = "cash"
)

// IsValidPaymentMethod reports whether m is a supported payment method.
func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCard, PaymentPayPal, PaymentCash:
		return true
	}
	return false
}

// Payment is the stored outcome of a charge. Card data beyond the last four
// digits is never kept.
type Payment struct {
	Method    PaymentMethod `json:"method"`
	Provider  string        `json:"provider,omitempty"`
	Reference string        `json:"reference,omitempty"`
	Last4     string        `json:"last4,omitempty"`
}

// StatusChange is one entry in an order's status history.
type StatusChange struct {
	From OrderStatus `json:"from"`
	To   OrderStatus `json:"to"`
	At   time.Time   `json:"at"`
	Note string      `json:"note,omitempty"`
}

// Order is a placed order.
type Order struct {
	ID               string         `json:"id"`
	Number           string         `json:"number"`
	Customer         Customer       `json:"customer"`
	ShippingAddress  Address        `json:"shipping_address"`
	Items            []LineItem     `json:"items"`
	ShippingOptionID string         `json:"shipping_option_id"`
	PromotionCode    string         `json:"promotion_code,omitempty"`
	Totals           Totals         `json:"totals"`
	Status           OrderStatus    `json:"status"`
	Payment          Payment        `json:"payment"`
	Notes            string         `json:"notes,omitempty"`
	History          []StatusChange `json:"history,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// CardDetails carries card data for a single charge. It is never persisted.
type CardDetails struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// CheckoutRequest is the body of a checkout call.
type CheckoutRequest struct {
	CartID           string        `json:"cart_id,omitempty"`
	Customer         Customer      `json:"customer"`
	ShippingAddress  Address       `json:"shipping_address"`
	Items            []LineItem    `json:"items"`
	ShippingOptionID string        `json:"shipping_option_id"`
	PromotionCode    string        `json:"promotion_code,omitempty"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Card             *CardDetails  `json:"card,omitempty"`
	PayPalToken      string        `json:"paypal_token,omitempty"`
	Notes            string        `json:"notes,omitempty"`
}

// Quote is a priced cart that has not been charged or stored.
type Quote struct {
	Items         []LineItem `json:"items"`
	Totals        Totals     `json:"totals"`
	PromotionCode string     `json:"promotion_code,omitempty"`
	// PromotionNote explains why a supplied code gave no discount.
	PromotionNote string `json:"promotion_note,omitempty"`
}
