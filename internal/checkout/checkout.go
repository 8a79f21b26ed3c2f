// Package checkout prices carts and turns checkout requests into paid,
// persisted orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/backend"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/logging"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/payment"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/pricing"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/redact"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema/validate"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/tax"
)

var (
	ErrInvalid             = errors.New("invalid checkout request")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrOutOfStock          = errors.New("not enough stock")
	ErrShippingUnavailable = errors.New("shipping option unavailable")
	ErrPromotionInvalid    = errors.New("promotion cannot be applied")
)

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	GetProducts(ctx context.Context, ids []string) (map[string]schema.Product, error)
	GetShippingOption(ctx context.Context, id string) (*schema.ShippingOption, error)
	GetPromotion(ctx context.Context, code string) (*schema.Promotion, error)
	GetCart(ctx context.Context, id string) (*schema.Cart, error)
	DeleteCart(ctx context.Context, id string) error
	PlaceOrder(ctx context.Context, o *schema.Order) error
}

// Config wires a Service. Zero fields get defaults: the mock gateway, the
// built-in tax table, no backend sync and a no-op logger.
type Config struct {
	Payments payment.Provider
	Rates    pricing.RateSource
	Backend  backend.Syncer
	Logger   *zap.Logger
	Now      func() time.Time
}

// Service runs quotes and checkouts.
type Service struct {
	store    Store
	payments payment.Provider
	rates    pricing.RateSource
	backend  backend.Syncer
	log      *zap.Logger
	now      func() time.Time
}

// New returns a Service over st.
func New(st Store, cfg Config) *Service {
	s := &Service{
		store:    st,
		payments: cfg.Payments,
		rates:    cfg.Rates,
		backend:  cfg.Backend,
		log:      logging.OrNop(cfg.Logger),
		now:      cfg.Now,
	}
	if s.payments == nil {
		s.payments = payment.NewMock()
	}
	if s.rates == nil {
		s.rates = tax.Default()
	}
	if s.backend == nil {
		s.backend = backend.New(backend.Options{})
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// QuoteRequest is the input of Quote. Either CartID or Items is used.
type QuoteRequest struct {
	CartID           string            `json:"cart_id,omitempty"`
	Items            []schema.LineItem `json:"items"`
	ShippingOptionID string            `json:"shipping_option_id,omitempty"`
	State            string            `json:"state"`
	PromotionCode    string            `json:"promotion_code,omitempty"`
}

// Quote prices a cart without charging or storing anything. A promotion
// code that does not apply yields no discount and a PromotionNote instead
// of an error.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*schema.Quote, error) {
	items, err := s.resolveItems(ctx, req.CartID, req.Items)
	if err != nil {
		return nil, err
	}
	lines, err := s.priceLines(ctx, items)
	if err != nil {
		return nil, err
	}

	shipping := decimal.Zero
	if req.ShippingOptionID != "" {
		opt, err := s.shippingOption(ctx, req.ShippingOptionID)
		if err != nil {
			return nil, err
		}
		shipping = opt.Price
	}

	q := &schema.Quote{Items: lines}
	discount := decimal.Zero
	if code := strings.TrimSpace(req.PromotionCode); code != "" {
		p, d, err := s.discount(ctx, code, lines, shipping, req.State)
		if err != nil {
			q.PromotionNote = promotionNote(err)
		} else {
			q.PromotionCode = p.Code
			discount = d
		}
	}
	q.Totals = pricing.Compute(pricing.Input{Items: lines, Shipping: shipping, State: req.State, Discount: discount}, s.rates)
	return q, nil
}

// Checkout runs the order pipeline once, without retries: validate, price
// from catalog prices, apply the promotion, charge, persist, then sync to
// the backend. A declined payment returns a *payment.DeclinedError and
// nothing is stored.
func (s *Service) Checkout(ctx context.Context, req *schema.CheckoutRequest) (*schema.Order, error) {
	now := s.now()

	// --- Step 1: Validate request shape ---
	if err := validate.Checkout(req, now); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}

	// --- Step 2: Resolve and price lines from the catalog ---
	items, err := s.resolveItems(ctx, req.CartID, req.Items)
	if err != nil {
		return nil, err
	}
	lines, err := s.priceLines(ctx, items)
	if err != nil {
		return nil, err
	}

	// --- Step 3: Shipping ---
	opt, err := s.shippingOption(ctx, req.ShippingOptionID)
	if err != nil {
		return nil, err
	}

	// --- Step 4: Promotion ---
	state := req.ShippingAddress.State
	discount := decimal.Zero
	promoCode := ""
	if code := strings.TrimSpace(req.PromotionCode); code != "" {
		p, d, err := s.discount(ctx, code, lines, opt.Price, state)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrPromotionInvalid, promotionNote(err))
		}
		discount, promoCode = d, p.Code
	}

	// --- Step 5: Totals ---
	totals := pricing.Compute(pricing.Input{Items: lines, Shipping: opt.Price, State: state, Discount: discount}, s.rates)

	o := &schema.Order{
		ID:               uuid.NewString(),
		Number:           orderNumber(now),
		Customer:         req.Customer,
		ShippingAddress:  req.ShippingAddress,
		Items:            lines,
		ShippingOptionID: opt.ID,
		PromotionCode:    promoCode,
		Totals:           totals,
		Status:           schema.StatusPending,
		Payment:          schema.Payment{Method: req.PaymentMethod},
		Notes:            redact.Redact(req.Notes),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	log := s.log.With(zap.String("order", o.Number))

	// --- Step 6: Charge ---
	if req.PaymentMethod != schema.PaymentCash && totals.Total.IsPositive() {
		res, err := s.payments.Charge(ctx, payment.NewChargeRequest(o, req))
		if err != nil {
			var declined *payment.DeclinedError
			if errors.As(err, &declined) {
				log.Info("payment declined", zap.String("provider", declined.Provider), zap.String("code", declined.Code))
			} else {
				log.Error("payment failed", zap.Error(err))
			}
			return nil, err
		}
		o.Payment.Provider = res.Provider
		o.Payment.Reference = res.Reference
		o.Payment.Last4 = res.Last4
	}
	if o.Payment.Last4 == "" && req.Card != nil {
		o.Payment.Last4 = redact.Last4(req.Card.Number)
	}

	// --- Step 7: Persist ---
	if err := s.store.PlaceOrder(ctx, o); err != nil {
		if o.Payment.Reference != "" {
			log.Error("order not stored after successful charge",
				zap.String("provider", o.Payment.Provider),
				zap.String("reference", o.Payment.Reference),
				zap.Error(err))
		}
		if errors.Is(err, store.ErrInsufficientStock) {
			return nil, fmt.Errorf("%w: %v", ErrOutOfStock, err)
		}
		if errors.Is(err, promo.ErrUsageLimitReached) {
			return nil, fmt.Errorf("%w: %v", ErrPromotionInvalid, err)
		}
		return nil, fmt.Errorf("storing order: %w", err)
	}
	log.Info("order placed",
		zap.String("id", o.ID),
		zap.String("total", o.Totals.Total.StringFixed(2)),
		zap.String("method", string(o.Payment.Method)))

	// --- Step 8: Best-effort follow-ups ---
	if req.CartID != "" {
		if err := s.store.DeleteCart(ctx, req.CartID); err != nil {
			log.Warn("cart not cleared", zap.String("cart", req.CartID), zap.Error(err))
		}
	}
	if s.backend.Enabled() {
		if err := s.backend.SyncOrder(ctx, o); err != nil {
			log.Warn("backend sync failed", zap.Error(err))
		}
	}
	return o, nil
}

// resolveItems returns the lines to price: the cart's items when cartID is
// set, else items.
func (s *Service) resolveItems(ctx context.Context, cartID string, items []schema.LineItem) ([]schema.LineItem, error) {
	if cartID != "" {
		c, err := s.store.GetCart(ctx, cartID)
		if err != nil {
			return nil, err
		}
		items = c.Items
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items: at least one item is required", ErrInvalid)
	}
	if err := validate.Items(items); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, err)
	}
	return items, nil
}

// priceLines replaces client-supplied names and prices with catalog values
// and checks availability. Lines keep the request order.
func (s *Service) priceLines(ctx context.Context, items []schema.LineItem) ([]schema.LineItem, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	lines := make([]schema.LineItem, len(items))
	for i, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, it.ProductID)
		}
		if p.Stock < it.Quantity {
			return nil, fmt.Errorf("%w: %s has %d, %d requested", ErrOutOfStock, p.Name, p.Stock, it.Quantity)
		}
		lines[i] = schema.LineItem{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: it.Quantity}
	}
	return lines, nil
}

func (s *Service) shippingOption(ctx context.Context, id string) (*schema.ShippingOption, error) {
	opt, err := s.store.GetShippingOption(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrShippingUnavailable, id)
	}
	if err != nil {
		return nil, err
	}
	if !opt.Active {
		return nil, fmt.Errorf("%w: %s", ErrShippingUnavailable, id)
	}
	return opt, nil
}

func (s *Service) discount(ctx context.Context, code string, lines []schema.LineItem, shipping decimal.Decimal, state string) (*schema.Promotion, decimal.Decimal, error) {
	p, err := s.store.GetPromotion(ctx, code)
	if err != nil {
		return nil, decimal.Zero, err
	}
	d, err := promo.Discount(*p, promo.Order{Items: lines, Shipping: shipping, State: state, Now: s.now()})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return p, d, nil
}

// promotionNote turns a promotion lookup or eligibility error into customer text.
func promotionNote(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "unknown promotion code"
	case errors.Is(err, promo.ErrNotActive):
		return "promotion is not active"
	case errors.Is(err, promo.ErrUsageLimitReached):
		return "promotion usage limit reached"
	case errors.Is(err, promo.ErrMinimumNotMet), errors.Is(err, promo.ErrConditionNotMet):
		return err.Error()
	default:
		return "promotion could not be applied"
	}
}

// orderNumber is the customer-facing order number, e.g. DMP-260315-4F1A9C2B.
func orderNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "DMP-" + now.UTC().Format("060102") + "-" + id[:8]
}
