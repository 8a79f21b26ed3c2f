package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// ProductFilter narrows ListProducts. Zero value lists active products.
type ProductFilter struct {
	CategoryID      string
	FeaturedOnly    bool
	Query           string // matched against name, description and sku
	IncludeInactive bool
}

const productColumns = `id, sku, name, description, category_id, price, stock, image_url, active, featured, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (schema.Product, error) {
	var p schema.Product
	var created, updated string
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.Price,
		&p.Stock, &p.ImageURL, &p.Active, &p.Featured, &created, &updated)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, err
}

// ListProducts returns products ordered by name.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]schema.Product, error) {
	var where []string
	var args []any
	if !f.IncludeInactive {
		where = append(where, "active = 1")
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.FeaturedOnly {
		where = append(where, "featured = 1")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(name LIKE ? OR description LIKE ? OR sku LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()
	products := []schema.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns one product, active or not.
func (s *Store) GetProduct(ctx context.Context, id string) (*schema.Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q queryer, id string) (*schema.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return &p, nil
}

// GetProducts returns the products with the given ids keyed by id. Unknown
// ids are absent from the map.
func (s *Store) GetProducts(ctx context.Context, ids []string) (map[string]schema.Product, error) {
	out := make(map[string]schema.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// CreateProduct inserts p, assigning an id when empty.
func (s *Store) CreateProduct(ctx context.Context, p schema.Product) (*schema.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.SKU, p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.ImageURL,
		p.Active, p.Featured, formatTime(now), formatTime(now))
	if err != nil {
		return nil, mapErr(err, "product "+p.ID)
	}
	return &p, nil
}

// UpdateProduct replaces every editable field of an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p schema.Product) (*schema.Product, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE products SET sku = ?, name = ?, description = ?, category_id = ?,
		price = ?, stock = ?, image_url = ?, active = ?, featured = ?, updated_at = ? WHERE id = ?`,
		p.SKU, p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.ImageURL,
		p.Active, p.Featured, formatTime(s.now()), p.ID)
	if err != nil {
		return nil, mapErr(err, "product "+p.ID)
	}
	if err := mustAffect(res, "product "+p.ID); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, p.ID)
}

// UpsertProduct inserts p or replaces an existing product with the same id.
func (s *Store) UpsertProduct(ctx context.Context, p schema.Product) error {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `INSERT INTO products (`+productColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET sku = excluded.sku, name = excluded.name,
		description = excluded.description, category_id = excluded.category_id,
		price = excluded.price, stock = excluded.stock, image_url = excluded.image_url,
		active = excluded.active, featured = excluded.featured, updated_at = excluded.updated_at`,
		p.ID, p.SKU, p.Name, p.Description, p.CategoryID, p.Price, p.Stock, p.ImageURL,
		p.Active, p.Featured, now, now)
	return mapErr(err, "product "+p.ID)
}

// DeleteProduct removes a product. Placed orders keep their own copy of the line.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}
	return mustAffect(res, "product "+id)
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]schema.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, slug, description FROM categories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()
	out := []schema.Category{}
	for rows.Next() {
		var c schema.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns one category.
func (s *Store) GetCategory(ctx context.Context, id string) (*schema.Category, error) {
	var c schema.Category
	err := s.db.QueryRowContext(ctx, "SELECT id, name, slug, description FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", id, err)
	}
	return &c, nil
}

// CreateCategory inserts c. The id defaults to the slug.
func (s *Store) CreateCategory(ctx context.Context, c schema.Category) (*schema.Category, error) {
	if c.ID == "" {
		c.ID = c.Slug
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO categories (id, name, slug, description) VALUES (?,?,?,?)",
		c.ID, c.Name, c.Slug, c.Description)
	if err != nil {
		return nil, mapErr(err, "category "+c.ID)
	}
	return &c, nil
}

// UpdateCategory replaces an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c schema.Category) (*schema.Category, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE categories SET name = ?, slug = ?, description = ? WHERE id = ?",
		c.Name, c.Slug, c.Description, c.ID)
	if err != nil {
		return nil, mapErr(err, "category "+c.ID)
	}
	if err := mustAffect(res, "category "+c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCategory inserts or replaces c by id.
func (s *Store) UpsertCategory(ctx context.Context, c schema.Category) error {
	if c.ID == "" {
		c.ID = c.Slug
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, name, slug, description) VALUES (?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, slug = excluded.slug, description = excluded.description`,
		c.ID, c.Name, c.Slug, c.Description)
	return mapErr(err, "category "+c.ID)
}

// DeleteCategory removes a category that no product references.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE category_id = ?", id).Scan(&n); err != nil {
			return fmt.Errorf("category %s: %w", id, err)
		}
		if n > 0 {
			return fmt.Errorf("category %s has %d products: %w", id, n, ErrConflict)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting category %s: %w", id, err)
		}
		return mustAffect(res, "category "+id)
	})
}

// ListShippingOptions returns shipping options ordered by price.
func (s *Store) ListShippingOptions(ctx context.Context, activeOnly bool) ([]schema.ShippingOption, error) {
	query := "SELECT id, name, price, estimated_days, active FROM shipping_options"
	if activeOnly {
		query += " WHERE active = 1"
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY CAST(price AS REAL), id")
	if err != nil {
		return nil, fmt.Errorf("listing shipping options: %w", err)
	}
	defer rows.Close()
	out := []schema.ShippingOption{}
	for rows.Next() {
		var o schema.ShippingOption
		if err := rows.Scan(&o.ID, &o.Name, &o.Price, &o.EstimatedDays, &o.Active); err != nil {
			return nil, fmt.Errorf("scanning shipping option: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetShippingOption returns one shipping option.
func (s *Store) GetShippingOption(ctx context.Context, id string) (*schema.ShippingOption, error) {
	var o schema.ShippingOption
	err := s.db.QueryRowContext(ctx, "SELECT id, name, price, estimated_days, active FROM shipping_options WHERE id = ?", id).
		Scan(&o.ID, &o.Name, &o.Price, &o.EstimatedDays, &o.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shipping option %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("shipping option %s: %w", id, err)
	}
	return &o, nil
}

// CreateShippingOption inserts o, assigning an id when empty.
func (s *Store) CreateShippingOption(ctx context.Context, o schema.ShippingOption) (*schema.ShippingOption, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO shipping_options (id, name, price, estimated_days, active) VALUES (?,?,?,?,?)",
		o.ID, o.Name, o.Price, o.EstimatedDays, o.Active)
	if err != nil {
		return nil, mapErr(err, "shipping option "+o.ID)
	}
	return &o, nil
}

// UpdateShippingOption replaces an existing shipping option.
func (s *Store) UpdateShippingOption(ctx context.Context, o schema.ShippingOption) (*schema.ShippingOption, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE shipping_options SET name = ?, price = ?, estimated_days = ?, active = ? WHERE id = ?",
		o.Name, o.Price, o.EstimatedDays, o.Active, o.ID)
	if err != nil {
		return nil, mapErr(err, "shipping option "+o.ID)
	}
	if err := mustAffect(res, "shipping option "+o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpsertShippingOption inserts or replaces o by id.
func (s *Store) UpsertShippingOption(ctx context.Context, o schema.ShippingOption) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO shipping_options (id, name, price, estimated_days, active) VALUES (?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, price = excluded.price,
		estimated_days = excluded.estimated_days, active = excluded.active`,
		o.ID, o.Name, o.Price, o.EstimatedDays, o.Active)
	return mapErr(err, "shipping option "+o.ID)
}

// DeleteShippingOption removes a shipping option.
func (s *Store) DeleteShippingOption(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM shipping_options WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting shipping option %s: %w", id, err)
	}
	return mustAffect(res, "shipping option "+id)
}
