package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// paypalAPIURL is a var to allow test overrides via httptest.
var paypalAPIURL = "https://api-m.paypal.com"

// PayPalAPIURL returns the current PayPal API base URL.
func PayPalAPIURL() string { return paypalAPIURL }

// SetPayPalAPIURL overrides the PayPal API base URL.
// Intended for use in tests only.
func SetPayPalAPIURL(u string) { paypalAPIURL = u }

type paypalProvider struct {
	clientID     string
	clientSecret string
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

type paypalCaptureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (p *paypalProvider) Name() string { return "paypal" }

// Charge captures an order the buyer already approved in the PayPal popup and
// checks the captured amount against the order total.
func (p *paypalProvider) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req.Method != schema.PaymentPayPal || req.PayPalToken == "" {
		return nil, fmt.Errorf("paypal: an approved PayPal order token is required")
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	captureURL := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", paypalAPIURL, url.PathEscape(req.PayPalToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, captureURL, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("PayPal-Request-Id", req.OrderID)

	var cr paypalCaptureResponse
	status, raw, err := doJSON(httpReq, &cr)
	if err != nil {
		return nil, fmt.Errorf("paypal: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		if status == http.StatusUnprocessableEntity && len(cr.Details) > 0 {
			return nil, &DeclinedError{Provider: "paypal", Code: cr.Details[0].Issue, Message: cr.Details[0].Description}
		}
		if cr.Name != "" {
			return nil, fmt.Errorf("paypal: %s: %s", cr.Name, cr.Message)
		}
		return nil, fmt.Errorf("paypal: HTTP %d: %s", status, truncate(raw, 200))
	}
	if cr.Status != "COMPLETED" {
		return nil, &DeclinedError{Provider: "paypal", Code: cr.Status, Message: "capture did not complete"}
	}

	ref := cr.ID
	if len(cr.PurchaseUnits) > 0 && len(cr.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := cr.PurchaseUnits[0].Payments.Captures[0]
		ref = capture.ID
		captured, err := decimal.NewFromString(capture.Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("paypal: capture amount %q: %w", capture.Amount.Value, err)
		}
		if !captured.Equal(req.Amount.Round(2)) {
			return nil, fmt.Errorf("paypal: captured %s but order total is %s", captured.StringFixed(2), req.Amount.StringFixed(2))
		}
	}
	return &ChargeResult{Provider: "paypal", Reference: ref}, nil
}

func (p *paypalProvider) accessToken(ctx context.Context) (string, error) {
	body := strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, paypalAPIURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.clientID, p.clientSecret)

	var tr paypalTokenResponse
	status, raw, err := doJSON(httpReq, &tr)
	if err != nil {
		return "", fmt.Errorf("paypal token: %w", err)
	}
	if status != http.StatusOK || tr.AccessToken == "" {
		if tr.Error != "" {
			return "", fmt.Errorf("paypal token: %s: %s", tr.Error, tr.Description)
		}
		return "", fmt.Errorf("paypal token: HTTP %d: %s", status, truncate(raw, 200))
	}
	return tr.AccessToken, nil
}

// doJSON executes req and decodes the JSON body into out regardless of status.
func doJSON(req *http.Request, out any) (int, string, error) {
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBodyBytes = 1 << 20 // 1 MiB
	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response body: %w", err)
	}
	raw := string(respBytes)
	if err := json.Unmarshal(respBytes, out); err != nil {
		return resp.StatusCode, raw, fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", resp.StatusCode, truncate(raw, 200), err)
	}
	return resp.StatusCode, raw, nil
}
