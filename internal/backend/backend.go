// Package backend mirrors placed orders to an optional hosted REST backend
// (a PostgREST-style endpoint such as Supabase).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// Syncer pushes an order to the hosted backend.
type Syncer interface {
	SyncOrder(ctx context.Context, o *schema.Order) error
	Enabled() bool
}

// Options configures a Client.
type Options struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// New returns a Client for opts, or a disabled syncer when opts.URL is empty.
func New(opts Options) Syncer {
	if strings.TrimSpace(opts.URL) == "" {
		return disabled{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opts.URL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type disabled struct{}

func (disabled) SyncOrder(context.Context, *schema.Order) error { return nil }
func (disabled) Enabled() bool                                  { return false }

// Client posts orders to {url}/rest/v1/orders.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Enabled reports true.
func (c *Client) Enabled() bool { return true }

// orderRow is the flat row shape of the hosted orders table.
type orderRow struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"order_number"`
	CustomerName    string               `json:"customer_name"`
	CustomerEmail   string               `json:"customer_email"`
	CustomerPhone   string               `json:"customer_phone,omitempty"`
	ShippingAddress schema.Address       `json:"shipping_address"`
	Items           []schema.LineItem    `json:"items"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	Shipping        decimal.Decimal      `json:"shipping"`
	Tax             decimal.Decimal      `json:"tax"`
	Discount        decimal.Decimal      `json:"discount"`
	Total           decimal.Decimal      `json:"total"`
	PromotionCode   string               `json:"promotion_code,omitempty"`
	PaymentMethod   schema.PaymentMethod `json:"payment_method"`
	PaymentRef      string               `json:"payment_reference,omitempty"`
	Status          schema.OrderStatus   `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
}

func newRow(o *schema.Order) orderRow {
	return orderRow{
		ID:              o.ID,
		OrderNumber:     o.Number,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		ShippingAddress: o.ShippingAddress,
		Items:           o.Items,
		Subtotal:        o.Totals.Subtotal,
		Shipping:        o.Totals.Shipping,
		Tax:             o.Totals.Tax,
		Discount:        o.Totals.Discount,
		Total:           o.Totals.Total,
		PromotionCode:   o.PromotionCode,
		PaymentMethod:   o.Payment.Method,
		PaymentRef:      o.Payment.Reference,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
}

// SyncOrder inserts o as one row. Any non-2xx answer is an error.
func (c *Client) SyncOrder(ctx context.Context, o *schema.Order) error {
	body, err := json.Marshal(newRow(o))
	if err != nil {
		return fmt.Errorf("backend: encoding order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Errorf("backend: HTTP %d: %s", resp.StatusCode, msg)
}
