package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

func li(id string, price int64, qty int) schema.LineItem {
	return schema.LineItem{ProductID: id, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestAdd_MergesSameProduct(t *testing.T) {
	items, err := Add(nil, li("arepa", 3, 2))
	if err != nil {
		t.Fatal(err)
	}
	items, err = Add(items, li("arepa", 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Errorf("expected one line with quantity 3, got %+v", items)
	}
}

func TestAdd_DoesNotMutateInput(t *testing.T) {
	orig := []schema.LineItem{li("arepa", 3, 1)}
	if _, err := Add(orig, li("arepa", 3, 5)); err != nil {
		t.Fatal(err)
	}
	if orig[0].Quantity != 1 {
		t.Errorf("input mutated: quantity %d", orig[0].Quantity)
	}
}

func TestAdd_InvalidQuantity(t *testing.T) {
	_, err := Add(nil, li("arepa", 3, 0))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	items := []schema.LineItem{li("a", 1, 1), li("b", 2, 2)}
	got := SetQuantity(items, "a", 0)
	if len(got) != 1 || got[0].ProductID != "b" {
		t.Errorf("expected only b left, got %+v", got)
	}
	got = SetQuantity(items, "b", 5)
	if got[1].Quantity != 5 {
		t.Errorf("quantity not updated: %+v", got)
	}
}

func TestApply_Sequence(t *testing.T) {
	var items []schema.LineItem
	actions := []Action{
		{Type: ActionAdd, Item: li("a", 2, 1)},
		{Type: ActionAdd, Item: li("b", 5, 2)},
		{Type: ActionUpdateQuantity, ProductID: "a", Quantity: 4},
		{Type: ActionRemove, ProductID: "b"},
	}
	for _, a := range actions {
		var err error
		items, err = Apply(items, a)
		if err != nil {
			t.Fatalf("Apply(%s): %v", a.Type, err)
		}
	}
	if Count(items) != 4 {
		t.Errorf("Count = %d, want 4", Count(items))
	}
	if !Subtotal(items).Equal(decimal.NewFromInt(8)) {
		t.Errorf("Subtotal = %s, want 8", Subtotal(items))
	}
	items, _ = Apply(items, Action{Type: ActionClear})
	if len(items) != 0 {
		t.Errorf("expected empty cart after clear, got %+v", items)
	}
}

func TestApply_UnknownAction(t *testing.T) {
	if _, err := Apply(nil, Action{Type: "EMPTY_WALLET"}); err == nil {
		t.Error("expected error for unknown action")
	}
}
