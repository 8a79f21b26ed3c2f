// Package order holds the order fulfilment state machine.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// ErrInvalidTransition is returned for a status change the machine does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the allowed next states. completed and cancelled are terminal.
var transitions = map[schema.OrderStatus][]schema.OrderStatus{
	schema.StatusPending:    {schema.StatusProcessing, schema.StatusCancelled},
	schema.StatusProcessing: {schema.StatusShipped, schema.StatusCancelled},
	schema.StatusShipped:    {schema.StatusCompleted},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to schema.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s.
func Next(s schema.OrderStatus) []schema.OrderStatus {
	return append([]schema.OrderStatus(nil), transitions[s]...)
}

// Terminal reports whether no further transition is possible from s.
func Terminal(s schema.OrderStatus) bool {
	return schema.IsValidStatus(s) && len(transitions[s]) == 0
}

// Transition moves o to status to, recording the change in its history.
func Transition(o *schema.Order, to schema.OrderStatus, note string, now time.Time) error {
	if !schema.IsValidStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.History = append(o.History, schema.StatusChange{From: o.Status, To: to, At: now, Note: note})
	o.Status = to
	o.UpdatedAt = now
	return nil
}
