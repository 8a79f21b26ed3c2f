package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/redact"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// Test card endings the mock gateway refuses, mirroring common gateway test cards.
var mockDeclines = map[string]DeclinedError{
	"0002": {Code: "card_declined", Message: "Your card was declined."},
	"9995": {Code: "insufficient_funds", Message: "Your card has insufficient funds."},
	"0069": {Code: "expired_card", Message: "Your card has expired."},
}

type mockProvider struct{}

// NewMock returns a Provider that approves every payment except the
// well-known decline test cards and the PayPal token "DECLINED".
func NewMock() Provider { return mockProvider{} }

func (mockProvider) Name() string { return "mock" }

func (mockProvider) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("mock: amount %s must be positive", req.Amount)
	}
	res := &ChargeResult{Provider: "mock", Reference: "mock_" + uuid.NewString()}
	switch req.Method {
	case schema.PaymentCard:
		if req.Card == nil {
			return nil, fmt.Errorf("mock: card details missing")
		}
		res.Last4 = redact.Last4(req.Card.Number)
		if d, ok := mockDeclines[res.Last4]; ok {
			d.Provider = "mock"
			return nil, &d
		}
	case schema.PaymentPayPal:
		if strings.EqualFold(req.PayPalToken, "DECLINED") {
			return nil, &DeclinedError{Provider: "mock", Code: "INSTRUMENT_DECLINED", Message: "The instrument presented was declined."}
		}
	default:
		return nil, fmt.Errorf("mock: unsupported payment method %q", req.Method)
	}
	return res, nil
}
