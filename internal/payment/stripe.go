package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/redact"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// stripeAPIURL is a var to allow test overrides via httptest.
var stripeAPIURL = "https://api.stripe.com/v1/payment_intents"

// StripeAPIURL returns the current Stripe PaymentIntents endpoint URL.
func StripeAPIURL() string { return stripeAPIURL }

// SetStripeAPIURL overrides the Stripe endpoint URL.
// Intended for use in tests only.
func SetStripeAPIURL(u string) { stripeAPIURL = u }

type stripeProvider struct {
	secretKey string // unexported; never serialized by encoding/json
}

type stripeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

func (p *stripeProvider) Name() string { return "stripe" }

func (p *stripeProvider) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req.Method != schema.PaymentCard || req.Card == nil {
		return nil, fmt.Errorf("stripe: only card payments are supported")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountInCents(req.Amount), 10))
	form.Set("currency", currencyOrDefault(req.Currency))
	form.Set("confirm", "true")
	form.Set("description", req.Description)
	form.Set("metadata[order_id]", req.OrderID)
	if req.Email != "" {
		form.Set("receipt_email", req.Email)
	}
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][number]", req.Card.Number)
	form.Set("payment_method_data[card][exp_month]", strconv.Itoa(req.Card.ExpMonth))
	form.Set("payment_method_data[card][exp_year]", strconv.Itoa(req.Card.ExpYear))
	form.Set("payment_method_data[card][cvc]", req.Card.CVC)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, stripeAPIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	// The same order never produces two charges.
	httpReq.Header.Set("Idempotency-Key", req.OrderID)

	resp, err := sharedHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBodyBytes = 1 << 20 // 1 MiB
	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	respStr := redact.Redact(string(respBytes))

	var sr stripeResponse
	if err := json.Unmarshal(respBytes, &sr); err != nil {
		return nil, fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", resp.StatusCode, truncate(respStr, 200), err)
	}

	if resp.StatusCode != http.StatusOK {
		if sr.Error != nil {
			if sr.Error.Type == "card_error" {
				code := sr.Error.DeclineCode
				if code == "" {
					code = sr.Error.Code
				}
				return nil, &DeclinedError{Provider: "stripe", Code: code, Message: sr.Error.Message}
			}
			return nil, fmt.Errorf("stripe: %s: %s", sr.Error.Type, sr.Error.Message)
		}
		return nil, fmt.Errorf("stripe: HTTP %d: %s", resp.StatusCode, truncate(respStr, 200))
	}

	switch sr.Status {
	case "succeeded", "processing":
	case "requires_action":
		return nil, &DeclinedError{Provider: "stripe", Code: "authentication_required", Message: "card requires additional authentication"}
	default:
		return nil, fmt.Errorf("stripe: unexpected payment intent status %q", sr.Status)
	}

	return &ChargeResult{
		Provider:  "stripe",
		Reference: sr.ID,
		Last4:     redact.Last4(req.Card.Number),
	}, nil
}
