package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/order"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// PlaceOrder persists o in one transaction: every line's stock is
// decremented (failing with ErrInsufficientStock if any product is short or
// inactive), the promotion code is redeemed if present, and the order row is
// written. Nothing is kept when any step fails.
func (s *Store) PlaceOrder(ctx context.Context, o *schema.Order) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, it := range o.Items {
			res, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock - ?, updated_at = ?
				WHERE id = ? AND active = 1 AND stock >= ?`,
				it.Quantity, formatTime(s.now()), it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("reserving %s: %w", it.ProductID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("product %s: %w", it.ProductID, ErrInsufficientStock)
			}
		}
		if o.PromotionCode != "" {
			if err := redeem(ctx, tx, NormalizeCode(o.PromotionCode)); err != nil {
				return err
			}
		}
		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}
		for _, h := range o.History {
			if err := insertHistory(ctx, tx, o.ID, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertOrder(ctx context.Context, q queryer, o *schema.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO orders (id, number, status, email, total, data, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, o.Number, string(o.Status), o.Customer.Email, o.Totals.Total, data,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	return mapErr(err, "order "+o.Number)
}

// encodeOrder serializes o without its history, which lives in order_history.
func encodeOrder(o *schema.Order) (string, error) {
	cp := *o
	cp.History = nil
	raw, err := json.Marshal(cp)
	if err != nil {
		return "", fmt.Errorf("order %s: encoding: %w", o.ID, err)
	}
	return string(raw), nil
}

func insertHistory(ctx context.Context, q queryer, orderID string, h schema.StatusChange) error {
	_, err := q.ExecContext(ctx, "INSERT INTO order_history (order_id, from_status, to_status, note, at) VALUES (?,?,?,?,?)",
		orderID, string(h.From), string(h.To), h.Note, formatTime(h.At))
	if err != nil {
		return fmt.Errorf("order %s history: %w", orderID, err)
	}
	return nil
}

// GetOrder returns an order with its status history.
func (s *Store) GetOrder(ctx context.Context, id string) (*schema.Order, error) {
	return getOrder(ctx, s.db, "id", id)
}

// GetOrderByNumber returns an order by its customer-facing number.
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*schema.Order, error) {
	return getOrder(ctx, s.db, "number", number)
}

func getOrder(ctx context.Context, q queryer, column, value string) (*schema.Order, error) {
	var data string
	err := q.QueryRowContext(ctx, "SELECT data FROM orders WHERE "+column+" = ?", value).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", value, err)
	}
	var o schema.Order
	if err := json.Unmarshal([]byte(data), &o); err != nil {
		return nil, fmt.Errorf("order %s: decoding: %w", value, err)
	}
	if o.History, err = loadHistory(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func loadHistory(ctx context.Context, q queryer, orderID string) ([]schema.StatusChange, error) {
	rows, err := q.QueryContext(ctx, "SELECT from_status, to_status, note, at FROM order_history WHERE order_id = ? ORDER BY id", orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s history: %w", orderID, err)
	}
	defer rows.Close()
	var out []schema.StatusChange
	for rows.Next() {
		var h schema.StatusChange
		var at string
		if err := rows.Scan(&h.From, &h.To, &h.Note, &at); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		h.At = parseTime(at)
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListOrders returns orders newest first, optionally filtered by status.
// History is not loaded.
func (s *Store) ListOrders(ctx context.Context, status schema.OrderStatus) ([]schema.Order, error) {
	query := "SELECT data FROM orders"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY created_at DESC, id", args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()
	out := []schema.Order{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		var o schema.Order
		if err := json.Unmarshal([]byte(data), &o); err != nil {
			return nil, fmt.Errorf("decoding order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrderStatus moves an order to status `to` through the order state
// machine. Cancelling returns the reserved stock.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, to schema.OrderStatus, note string) (*schema.Order, error) {
	var updated *schema.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := getOrder(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := order.Transition(o, to, note, now); err != nil {
			return err
		}
		if to == schema.StatusCancelled {
			for _, it := range o.Items {
				if _, err := tx.ExecContext(ctx, "UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?",
					it.Quantity, formatTime(now), it.ProductID); err != nil {
					return fmt.Errorf("restocking %s: %w", it.ProductID, err)
				}
			}
		}
		data, err := encodeOrder(o)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE orders SET status = ?, data = ?, updated_at = ? WHERE id = ?",
			string(o.Status), data, formatTime(o.UpdatedAt), o.ID); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
		if err := insertHistory(ctx, tx, o.ID, o.History[len(o.History)-1]); err != nil {
			return err
		}
		updated = o
		return nil
	})
	return updated, err
}

// Stats is the admin dashboard summary.
type Stats struct {
	OrdersByStatus map[schema.OrderStatus]int `json:"orders_by_status"`
	OrderCount     int                        `json:"order_count"`
	// Revenue sums the totals of shipped and completed orders.
	Revenue        decimal.Decimal `json:"revenue"`
	ProductCount   int             `json:"product_count"`
	LowStockCount  int             `json:"low_stock_count"`
	PromotionCount int             `json:"promotion_count"`
}

// LowStockThreshold is the stock level below which an active product counts
// as low.
const LowStockThreshold = 5

// Stats computes the dashboard summary.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{OrdersByStatus: map[schema.OrderStatus]int{}, Revenue: decimal.Zero}
	rows, err := s.db.QueryContext(ctx, "SELECT status, total FROM orders")
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	for rows.Next() {
		var status schema.OrderStatus
		var total decimal.Decimal
		if err := rows.Scan(&status, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: %w", err)
		}
		st.OrdersByStatus[status]++
		st.OrderCount++
		if status == schema.StatusShipped || status == schema.StatusCompleted {
			st.Revenue = st.Revenue.Add(total)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN active = 1 AND stock < ? THEN 1 ELSE 0 END), 0)
		FROM products`, LowStockThreshold).Scan(&st.ProductCount, &st.LowStockCount)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM promotions").Scan(&st.PromotionCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
