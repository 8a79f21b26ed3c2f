package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// CreateCart stores an empty cart with a fresh id.
func (s *Store) CreateCart(ctx context.Context) (*schema.Cart, error) {
	c := &schema.Cart{ID: uuid.NewString(), Items: []schema.LineItem{}, UpdatedAt: s.now()}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO carts (id, items, updated_at) VALUES (?, '[]', ?)",
		c.ID, formatTime(c.UpdatedAt)); err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	return c, nil
}

// GetCart returns a cart by id.
func (s *Store) GetCart(ctx context.Context, id string) (*schema.Cart, error) {
	var raw, updated string
	err := s.db.QueryRowContext(ctx, "SELECT items, updated_at FROM carts WHERE id = ?", id).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cart %s: %w", id, err)
	}
	c := &schema.Cart{ID: id, UpdatedAt: parseTime(updated)}
	if err := json.Unmarshal([]byte(raw), &c.Items); err != nil {
		return nil, fmt.Errorf("cart %s: decoding items: %w", id, err)
	}
	return c, nil
}

// SaveCart replaces the items of an existing cart.
func (s *Store) SaveCart(ctx context.Context, c *schema.Cart) error {
	items := c.Items
	if items == nil {
		items = []schema.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart %s: encoding items: %w", c.ID, err)
	}
	c.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, "UPDATE carts SET items = ?, updated_at = ? WHERE id = ?",
		string(raw), formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("cart %s: %w", c.ID, err)
	}
	return mustAffect(res, "cart "+c.ID)
}

// DeleteCart removes a cart.
func (s *Store) DeleteCart(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cart %s: %w", id, err)
	}
	return mustAffect(res, "cart "+id)
}
