package order

import (
	"errors"
	"testing"
	"time"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

func TestTransition_HappyPath(t *testing.T) {
	o := &schema.Order{Status: schema.StatusPending}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, next := range []schema.OrderStatus{schema.StatusProcessing, schema.StatusShipped, schema.StatusCompleted} {
		if err := Transition(o, next, "", now); err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
	}
	if o.Status != schema.StatusCompleted {
		t.Errorf("status = %s, want completed", o.Status)
	}
	if len(o.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(o.History))
	}
	if o.History[0].From != schema.StatusPending || o.History[0].To != schema.StatusProcessing {
		t.Errorf("first history entry = %+v", o.History[0])
	}
	if !o.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt not set")
	}
}

func TestTransition_Rejected(t *testing.T) {
	cases := []struct {
		from, to schema.OrderStatus
	}{
		{schema.StatusPending, schema.StatusShipped},
		{schema.StatusShipped, schema.StatusCancelled},
		{schema.StatusCompleted, schema.StatusPending},
		{schema.StatusCancelled, schema.StatusProcessing},
		{schema.StatusPending, "lost"},
	}
	for _, tc := range cases {
		o := &schema.Order{Status: tc.from}
		err := Transition(o, tc.to, "", time.Now())
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
		if o.Status != tc.from {
			t.Errorf("%s -> %s: status changed to %s on rejection", tc.from, tc.to, o.Status)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !Terminal(schema.StatusCompleted) || !Terminal(schema.StatusCancelled) {
		t.Error("completed and cancelled must be terminal")
	}
	if Terminal(schema.StatusPending) || Terminal("bogus") {
		t.Error("pending and unknown statuses must not be terminal")
	}
}

func TestNext_ReturnsCopy(t *testing.T) {
	n := Next(schema.StatusPending)
	n[0] = schema.StatusCompleted
	if CanTransition(schema.StatusPending, schema.StatusCompleted) {
		t.Error("mutating Next result changed the transition table")
	}
}
