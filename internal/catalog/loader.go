// Package catalog loads the store's seed catalog from a YAML file.
package catalog

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/content"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema/validate"
)

// Catalog is a loaded seed file with derived metadata.
type Catalog struct {
	Path            string
	Hash            string // "sha256:<hex>"
	Categories      []schema.Category
	Products        []schema.Product
	ShippingOptions []schema.ShippingOption
	Promotions      []schema.Promotion
	Content         []schema.ContentBlock
}

// amount decodes YAML numbers and strings exactly, without a float round trip.
type amount struct{ decimal.Decimal }

func (a *amount) UnmarshalYAML(n *yaml.Node) error {
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", n.Line, n.Value)
	}
	a.Decimal = d
	return nil
}

type fileFormat struct {
	Categories []schema.Category `yaml:"categories"`
	Products   []struct {
		ID          string `yaml:"id"`
		SKU         string `yaml:"sku"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
		Price       amount `yaml:"price"`
		Stock       int    `yaml:"stock"`
		ImageURL    string `yaml:"image_url"`
		Active      *bool  `yaml:"active"`
		Featured    bool   `yaml:"featured"`
	} `yaml:"products"`
	ShippingOptions []struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		Price         amount `yaml:"price"`
		EstimatedDays int    `yaml:"estimated_days"`
		Active        *bool  `yaml:"active"`
	} `yaml:"shipping_options"`
	Promotions []struct {
		Code        string               `yaml:"code"`
		Description string               `yaml:"description"`
		Type        schema.PromotionType `yaml:"type"`
		Value       amount               `yaml:"value"`
		MinPurchase amount               `yaml:"min_purchase"`
		UsageLimit  int                  `yaml:"usage_limit"`
		StartsAt    *time.Time           `yaml:"starts_at"`
		EndsAt      *time.Time           `yaml:"ends_at"`
		Active      *bool                `yaml:"active"`
		Condition   string               `yaml:"condition"`
	} `yaml:"promotions"`
	// ContentDir is resolved relative to the seed file.
	ContentDir string `yaml:"content_dir"`
	Content    []struct {
		Key   string `yaml:"key"`
		Title string `yaml:"title"`
		Body  string `yaml:"body"`
	} `yaml:"content"`
}

// Load reads a seed file from disk, computes its hash, and validates every record.
func Load(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	sum := sha256.Sum256(data)
	c := &Catalog{
		Path:       cleanPath,
		Hash:       fmt.Sprintf("sha256:%x", sum),
		Categories: f.Categories,
	}
	for _, cat := range c.Categories {
		if err := validate.Category(cat); err != nil {
			return nil, err
		}
	}
	for _, p := range f.Products {
		prod := schema.Product{
			ID: p.ID, SKU: p.SKU, Name: p.Name, Description: p.Description,
			CategoryID: p.Category, Price: p.Price.Decimal, Stock: p.Stock,
			ImageURL: p.ImageURL, Active: boolOr(p.Active, true), Featured: p.Featured,
		}
		if prod.ID == "" {
			return nil, fmt.Errorf("product %q: id is required", p.Name)
		}
		if err := validate.Product(prod); err != nil {
			return nil, err
		}
		c.Products = append(c.Products, prod)
	}
	for _, s := range f.ShippingOptions {
		opt := schema.ShippingOption{
			ID: s.ID, Name: s.Name, Price: s.Price.Decimal,
			EstimatedDays: s.EstimatedDays, Active: boolOr(s.Active, true),
		}
		if err := validate.ShippingOption(opt); err != nil {
			return nil, err
		}
		c.ShippingOptions = append(c.ShippingOptions, opt)
	}
	for _, p := range f.Promotions {
		pr := schema.Promotion{
			Code: p.Code, Description: p.Description, Type: p.Type,
			Value: p.Value.Decimal, MinPurchase: p.MinPurchase.Decimal,
			UsageLimit: p.UsageLimit, StartsAt: p.StartsAt, EndsAt: p.EndsAt,
			Active: boolOr(p.Active, true), Condition: p.Condition,
		}
		if err := validate.Promotion(pr); err != nil {
			return nil, err
		}
		if err := promo.CheckCondition(pr.Condition); err != nil {
			return nil, fmt.Errorf("promotion %s: %w", pr.Code, err)
		}
		c.Promotions = append(c.Promotions, pr)
	}
	if f.ContentDir != "" {
		dir := f.ContentDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(cleanPath), dir)
		}
		blocks, err := content.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		c.Content = append(c.Content, blocks...)
	}
	for _, b := range f.Content {
		c.Content = append(c.Content, schema.ContentBlock{Key: b.Key, Title: b.Title, Body: b.Body})
	}
	for _, b := range c.Content {
		if err := validate.ContentBlock(b); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Sink receives catalog records. The store implements it.
type Sink interface {
	UpsertCategory(ctx context.Context, c schema.Category) error
	UpsertProduct(ctx context.Context, p schema.Product) error
	UpsertShippingOption(ctx context.Context, s schema.ShippingOption) error
	UpsertPromotion(ctx context.Context, p schema.Promotion) error
	PutContent(ctx context.Context, b schema.ContentBlock) (*schema.ContentRevision, error)
}

// Stats counts the records written by Apply.
type Stats struct {
	Categories, Products, ShippingOptions, Promotions, Content int
}

// Apply writes every record of c into sink, categories first so products can
// reference them.
func (c *Catalog) Apply(ctx context.Context, sink Sink) (Stats, error) {
	var st Stats
	for _, cat := range c.Categories {
		if err := sink.UpsertCategory(ctx, cat); err != nil {
			return st, fmt.Errorf("category %s: %w", cat.ID, err)
		}
		st.Categories++
	}
	for _, p := range c.Products {
		if err := sink.UpsertProduct(ctx, p); err != nil {
			return st, fmt.Errorf("product %s: %w", p.ID, err)
		}
		st.Products++
	}
	for _, s := range c.ShippingOptions {
		if err := sink.UpsertShippingOption(ctx, s); err != nil {
			return st, fmt.Errorf("shipping option %s: %w", s.ID, err)
		}
		st.ShippingOptions++
	}
	for _, p := range c.Promotions {
		if err := sink.UpsertPromotion(ctx, p); err != nil {
			return st, fmt.Errorf("promotion %s: %w", p.Code, err)
		}
		st.Promotions++
	}
	for _, b := range c.Content {
		if _, err := sink.PutContent(ctx, b); err != nil {
			return st, fmt.Errorf("content %s: %w", b.Key, err)
		}
		st.Content++
	}
	return st, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
