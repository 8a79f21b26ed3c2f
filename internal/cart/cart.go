// Package cart implements the shopping cart as a pure reducer over line items.
// Every operation returns a new slice; the input is never modified.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/pricing"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// ErrInvalidQuantity is returned when an item is added with a quantity below 1.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ActionType names a cart mutation.
type ActionType string

const (
	ActionAdd            ActionType = "ADD_ITEM"
	ActionRemove         ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionClear          ActionType = "CLEAR_CART"
)

// Action is a serialized cart mutation.
type Action struct {
	Type      ActionType      `json:"type"`
	Item      schema.LineItem `json:"item,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
}

// Apply runs a single action against items.
func Apply(items []schema.LineItem, a Action) ([]schema.LineItem, error) {
	switch a.Type {
	case ActionAdd:
		return Add(items, a.Item)
	case ActionRemove:
		return Remove(items, a.ProductID), nil
	case ActionUpdateQuantity:
		return SetQuantity(items, a.ProductID, a.Quantity), nil
	case ActionClear:
		return Clear(), nil
	default:
		return nil, fmt.Errorf("unknown cart action %q", a.Type)
	}
}

// Add appends item, or increases the quantity of an existing line for the
// same product. The existing line keeps its price and name.
func Add(items []schema.LineItem, item schema.LineItem) ([]schema.LineItem, error) {
	if item.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	out := clone(items)
	for i := range out {
		if out[i].ProductID == item.ProductID {
			out[i].Quantity += item.Quantity
			return out, nil
		}
	}
	return append(out, item), nil
}

// Remove drops the line for productID. Unknown products are ignored.
func Remove(items []schema.LineItem, productID string) []schema.LineItem {
	out := make([]schema.LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}

// SetQuantity replaces the quantity of productID; a quantity ≤ 0 removes the line.
func SetQuantity(items []schema.LineItem, productID string, qty int) []schema.LineItem {
	if qty <= 0 {
		return Remove(items, productID)
	}
	out := clone(items)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = qty
		}
	}
	return out
}

// Clear returns an empty cart.
func Clear() []schema.LineItem { return []schema.LineItem{} }

// Count returns the total number of units in the cart.
func Count(items []schema.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Subtotal returns the cart's undiscounted, untaxed total.
func Subtotal(items []schema.LineItem) decimal.Decimal {
	return pricing.Subtotal(items)
}

func clone(items []schema.LineItem) []schema.LineItem {
	out := make([]schema.LineItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
