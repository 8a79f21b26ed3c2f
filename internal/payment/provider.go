package payment

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// sharedHTTPClient is used by all gateway providers.
var sharedHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ChargeRequest holds the parameters for a single payment.
type ChargeRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string // ISO 4217, lower case; "usd" when empty
	Method      schema.PaymentMethod
	Card        *schema.CardDetails
	PayPalToken string // approved PayPal order id from the buyer's browser
	Description string
	Email       string
}

// ChargeResult is a successful payment.
type ChargeResult struct {
	Provider  string
	Reference string // gateway transaction id
	Last4     string
}

// DeclinedError is returned when the gateway refuses the payment. Any other
// error means the gateway could not be reached or answered unexpectedly.
type DeclinedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *DeclinedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: payment declined: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: payment declined (%s): %s", e.Provider, e.Code, e.Message)
}

// Provider is the interface for payment backends.
type Provider interface {
	Name() string
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

// NewProvider returns the named Provider. Gateway credentials are read from
// the environment at construction time and validated immediately.
// Supported names: "mock", "stripe", "paypal".
func NewProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mock", "":
		return NewMock(), nil
	case "stripe":
		key := os.Getenv("STRIPE_SECRET_KEY")
		if key == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable not set")
		}
		return &stripeProvider{secretKey: key}, nil
	case "paypal":
		id, secret := os.Getenv("PAYPAL_CLIENT_ID"), os.Getenv("PAYPAL_CLIENT_SECRET")
		if id == "" || secret == "" {
			return nil, fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET environment variables must be set")
		}
		return &paypalProvider{clientID: id, clientSecret: secret}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q: supported providers are mock, stripe, paypal", name)
	}
}

// amountInCents converts a dollar amount to the integer minor units gateways expect.
func amountInCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "usd"
	}
	return strings.ToLower(c)
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
