// Package promo decides whether a promotion applies to an order and how much
// it takes off.
package promo

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/pricing"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

var (
	ErrNotActive         = errors.New("promotion is not active")
	ErrUsageLimitReached = errors.New("promotion usage limit reached")
	ErrMinimumNotMet     = errors.New("minimum purchase not met")
	ErrConditionNotMet   = errors.New("promotion conditions not met")
)

// Order is the view of an order a promotion is evaluated against.
type Order struct {
	Items    []schema.LineItem
	Shipping decimal.Decimal
	State    string
	Now      time.Time
}

// Discount returns the amount p takes off o. When p does not apply the
// discount is zero and the error says why; callers may surface or ignore it.
func Discount(p schema.Promotion, o Order) (decimal.Decimal, error) {
	if err := Eligible(p, o); err != nil {
		return decimal.Zero, err
	}
	subtotal := pricing.Subtotal(o.Items)
	switch p.Type {
	case schema.PromotionPercentage:
		pct := decimal.Min(decimal.Max(p.Value, decimal.Zero), decimal.NewFromInt(100))
		return pricing.Round(subtotal.Mul(pct).Div(decimal.NewFromInt(100))), nil
	case schema.PromotionFixed:
		return decimal.Min(decimal.Max(p.Value, decimal.Zero), subtotal), nil
	case schema.PromotionFreeShipping:
		return decimal.Max(o.Shipping, decimal.Zero), nil
	default:
		return decimal.Zero, fmt.Errorf("promotion %s: unknown type %q", p.Code, p.Type)
	}
}

// Eligible checks activity, date window, usage limit, minimum purchase and
// the optional condition expression, in that order.
func Eligible(p schema.Promotion, o Order) error {
	if !p.Active {
		return ErrNotActive
	}
	if p.StartsAt != nil && o.Now.Before(*p.StartsAt) {
		return ErrNotActive
	}
	if p.EndsAt != nil && !o.Now.Before(*p.EndsAt) {
		return ErrNotActive
	}
	if Exhausted(p) {
		return ErrUsageLimitReached
	}
	subtotal := pricing.Subtotal(o.Items)
	if subtotal.LessThan(p.MinPurchase) {
		return fmt.Errorf("%w: subtotal %s below %s", ErrMinimumNotMet, subtotal.StringFixed(2), p.MinPurchase.StringFixed(2))
	}
	if strings.TrimSpace(p.Condition) == "" {
		return nil
	}
	ok, err := evaluate(p.Condition, o, subtotal)
	if err != nil {
		return fmt.Errorf("promotion %s: %w", p.Code, err)
	}
	if !ok {
		return ErrConditionNotMet
	}
	return nil
}

// Exhausted reports whether p has reached its usage limit.
func Exhausted(p schema.Promotion) bool {
	return p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit
}

// CheckCondition compiles a condition expression without running it.
func CheckCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return nil
	}
	_, err := compile(condition)
	return err
}

// programs caches compiled condition expressions by source text.
var programs sync.Map

func compile(condition string) (*vm.Program, error) {
	if p, ok := programs.Load(condition); ok {
		return p.(*vm.Program), nil
	}
	program, err := expr.Compile(condition, expr.Env(env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling condition %q: %w", condition, err)
	}
	programs.Store(condition, program)
	return program, nil
}

// env is the variable set a condition expression can reference.
type env struct {
	Subtotal float64   `expr:"subtotal"`
	Shipping float64   `expr:"shipping"`
	State    string    `expr:"state"`
	Quantity int       `expr:"quantity"`
	Products []string  `expr:"products"`
	Items    []envItem `expr:"items"`
}

type envItem struct {
	ProductID string  `expr:"product_id"`
	Quantity  int     `expr:"quantity"`
	UnitPrice float64 `expr:"unit_price"`
}

func evaluate(condition string, o Order, subtotal decimal.Decimal) (bool, error) {
	program, err := compile(condition)
	if err != nil {
		return false, err
	}
	e := env{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: o.Shipping.InexactFloat64(),
		State:    o.State,
	}
	for _, it := range o.Items {
		e.Quantity += it.Quantity
		e.Products = append(e.Products, it.ProductID)
		e.Items = append(e.Items, envItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
		})
	}
	out, err := expr.Run(program, e)
	if err != nil {
		return false, fmt.Errorf("evaluating condition: %w", err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
