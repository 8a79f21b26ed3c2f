package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

const promotionColumns = `code, description, type, value, min_purchase, usage_limit, usage_count, starts_at, ends_at, active, condition`

// NormalizeCode is the stored form of a promotion code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func scanPromotion(row interface{ Scan(...any) error }) (schema.Promotion, error) {
	var p schema.Promotion
	var starts, ends sql.NullString
	err := row.Scan(&p.Code, &p.Description, &p.Type, &p.Value, &p.MinPurchase,
		&p.UsageLimit, &p.UsageCount, &starts, &ends, &p.Active, &p.Condition)
	p.StartsAt = parseOptTime(starts)
	p.EndsAt = parseOptTime(ends)
	return p, err
}

func promotionArgs(p schema.Promotion) []any {
	return []any{NormalizeCode(p.Code), p.Description, string(p.Type), p.Value, p.MinPurchase,
		p.UsageLimit, p.UsageCount, formatOptTime(p.StartsAt), formatOptTime(p.EndsAt), p.Active, p.Condition}
}

// ListPromotions returns all promotions ordered by code.
func (s *Store) ListPromotions(ctx context.Context) ([]schema.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+promotionColumns+" FROM promotions ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	defer rows.Close()
	out := []schema.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPromotion looks a promotion up by code, ignoring case.
func (s *Store) GetPromotion(ctx context.Context, code string) (*schema.Promotion, error) {
	code = NormalizeCode(code)
	p, err := scanPromotion(s.db.QueryRowContext(ctx, "SELECT "+promotionColumns+" FROM promotions WHERE code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("promotion %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("promotion %s: %w", code, err)
	}
	return &p, nil
}

// CreatePromotion inserts p.
func (s *Store) CreatePromotion(ctx context.Context, p schema.Promotion) (*schema.Promotion, error) {
	p.Code = NormalizeCode(p.Code)
	_, err := s.db.ExecContext(ctx, "INSERT INTO promotions ("+promotionColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)", promotionArgs(p)...)
	if err != nil {
		return nil, mapErr(err, "promotion "+p.Code)
	}
	return &p, nil
}

// UpdatePromotion replaces the editable fields of a promotion. The usage
// count is kept; a usage limit below it is ErrConflict.
func (s *Store) UpdatePromotion(ctx context.Context, p schema.Promotion) (*schema.Promotion, error) {
	code := NormalizeCode(p.Code)
	res, err := s.db.ExecContext(ctx, `UPDATE promotions SET description = ?, type = ?, value = ?, min_purchase = ?,
		usage_limit = ?, starts_at = ?, ends_at = ?, active = ?, condition = ?
		WHERE code = ? AND (? = 0 OR usage_count <= ?)`,
		p.Description, string(p.Type), p.Value, p.MinPurchase, p.UsageLimit,
		formatOptTime(p.StartsAt), formatOptTime(p.EndsAt), p.Active, p.Condition, code,
		p.UsageLimit, p.UsageLimit)
	if err != nil {
		return nil, fmt.Errorf("promotion %s: %w", code, err)
	}
	if err := s.limitGuard(ctx, res, code); err != nil {
		return nil, err
	}
	return s.GetPromotion(ctx, code)
}

// UpsertPromotion inserts p or replaces a promotion with the same code,
// keeping its usage count. A usage limit below that count is ErrConflict.
func (s *Store) UpsertPromotion(ctx context.Context, p schema.Promotion) error {
	code := NormalizeCode(p.Code)
	res, err := s.db.ExecContext(ctx, "INSERT INTO promotions ("+promotionColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?)"+`
		ON CONFLICT(code) DO UPDATE SET description = excluded.description, type = excluded.type,
		value = excluded.value, min_purchase = excluded.min_purchase, usage_limit = excluded.usage_limit,
		starts_at = excluded.starts_at, ends_at = excluded.ends_at, active = excluded.active,
		condition = excluded.condition
		WHERE excluded.usage_limit = 0 OR promotions.usage_count <= excluded.usage_limit`, promotionArgs(p)...)
	if err != nil {
		return mapErr(err, "promotion "+code)
	}
	return s.limitGuard(ctx, res, code)
}

// limitGuard turns a write that matched no row into ErrNotFound when the code
// is missing and ErrConflict when the usage limit guard refused it.
func (s *Store) limitGuard(ctx context.Context, res sql.Result, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	err = s.db.QueryRowContext(ctx, "SELECT usage_count FROM promotions WHERE code = ?", code).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("promotion %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("promotion %s: %w", code, err)
	}
	return fmt.Errorf("promotion %s: usage_limit below usage_count %d: %w", code, count, ErrConflict)
}

// DeletePromotion removes a promotion.
func (s *Store) DeletePromotion(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	res, err := s.db.ExecContext(ctx, "DELETE FROM promotions WHERE code = ?", code)
	if err != nil {
		return fmt.Errorf("deleting promotion %s: %w", code, err)
	}
	return mustAffect(res, "promotion "+code)
}

// RedeemPromotion increments the usage count of code unless that would pass
// its usage limit, in which case promo.ErrUsageLimitReached is returned.
func (s *Store) RedeemPromotion(ctx context.Context, code string) error {
	return redeem(ctx, s.db, NormalizeCode(code))
}

func redeem(ctx context.Context, q queryer, code string) error {
	res, err := q.ExecContext(ctx, `UPDATE promotions SET usage_count = usage_count + 1
		WHERE code = ? AND (usage_limit = 0 OR usage_count < usage_limit)`, code)
	if err != nil {
		return fmt.Errorf("redeeming promotion %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM promotions WHERE code = ?", code).Scan(&exists); err != nil {
		return fmt.Errorf("redeeming promotion %s: %w", code, err)
	}
	if exists == 0 {
		return fmt.Errorf("promotion %s: %w", code, ErrNotFound)
	}
	return fmt.Errorf("promotion %s: %w", code, promo.ErrUsageLimitReached)
}
