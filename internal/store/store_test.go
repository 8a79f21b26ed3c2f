package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/content"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/order"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "shop.db"))
	require.NoError(t, err)
	s.SetClock(func() time.Time { return fixedNow })
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedProduct(t *testing.T, s *Store, id string, price string, stock int) {
	t.Helper()
	require.NoError(t, s.UpsertProduct(context.Background(), schema.Product{
		ID: id, Name: "Product " + id, CategoryID: "tamales", Price: dec(price), Stock: stock, Active: true,
	}))
}

func TestProducts_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, schema.Product{Name: "Pupusa", Price: dec("2.50"), Stock: 10, Active: true, Featured: true, CategoryID: "pupusas"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := s.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pupusa", got.Name)
	assert.True(t, got.Price.Equal(dec("2.5")))
	assert.True(t, got.Featured)
	assert.Equal(t, fixedNow, got.CreatedAt)

	_, err = s.CreateProduct(ctx, schema.Product{ID: created.ID, Name: "Dup", Price: dec("1")})
	assert.ErrorIs(t, err, ErrConflict)

	got.Stock = 3
	got.Name = "Pupusa revuelta"
	updated, err := s.UpdateProduct(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)

	_, err = s.UpdateProduct(ctx, schema.Product{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProduct(ctx, created.ID))
	_, err = s.GetProduct(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, created.ID), ErrNotFound)
}

func TestListProducts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertProduct(ctx, schema.Product{ID: "a", Name: "Arepa", CategoryID: "masa", Price: dec("3"), Active: true, Featured: true}))
	require.NoError(t, s.UpsertProduct(ctx, schema.Product{ID: "b", Name: "Baleada", CategoryID: "masa", Price: dec("4"), Active: true, Description: "frijoles y queso"}))
	require.NoError(t, s.UpsertProduct(ctx, schema.Product{ID: "c", Name: "Cajeta", CategoryID: "dulces", Price: dec("6"), Active: false}))

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "inactive products are hidden")

	withInactive, err := s.ListProducts(ctx, ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, withInactive, 3)

	featured, err := s.ListProducts(ctx, ProductFilter{FeaturedOnly: true})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "a", featured[0].ID)

	search, err := s.ListProducts(ctx, ProductFilter{Query: "QUESO"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "b", search[0].ID)

	byCat, err := s.ListProducts(ctx, ProductFilter{CategoryID: "dulces", IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, byCat, 1)

	m, err := s.GetProducts(ctx, []string{"a", "c", "zzz"})
	require.NoError(t, err)
	assert.Len(t, m, 2)
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCategory(ctx, schema.Category{Name: "Tamales", Slug: "tamales"})
	require.NoError(t, err)
	assert.Equal(t, "tamales", c.ID)

	_, err = s.CreateCategory(ctx, schema.Category{ID: "other", Name: "Dup", Slug: "tamales"})
	assert.ErrorIs(t, err, ErrConflict, "slug is unique")

	seedProduct(t, s, "p1", "1.00", 1)
	assert.ErrorIs(t, s.DeleteCategory(ctx, "tamales"), ErrConflict)

	require.NoError(t, s.DeleteProduct(ctx, "p1"))
	require.NoError(t, s.DeleteCategory(ctx, "tamales"))
	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestShippingOptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertShippingOption(ctx, schema.ShippingOption{ID: "express", Name: "Express", Price: dec("15.00"), Active: true}))
	require.NoError(t, s.UpsertShippingOption(ctx, schema.ShippingOption{ID: "standard", Name: "Standard", Price: dec("5.99"), Active: true}))
	require.NoError(t, s.UpsertShippingOption(ctx, schema.ShippingOption{ID: "old", Name: "Old", Price: dec("1"), Active: false}))

	active, err := s.ListShippingOptions(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "standard", active[0].ID, "ordered by price")

	o, err := s.GetShippingOption(ctx, "express")
	require.NoError(t, err)
	assert.True(t, o.Price.Equal(dec("15")))
}

func TestRedeemPromotion_NeverPassesLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreatePromotion(ctx, schema.Promotion{Code: "save10", Type: schema.PromotionPercentage, Value: dec("10"), UsageLimit: 3, Active: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.RedeemPromotion(ctx, "SAVE10")
		}()
	}
	wg.Wait()
	close(results)

	ok, limited := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, promo.ErrUsageLimitReached):
			limited++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, limited)

	p, err := s.GetPromotion(ctx, "Save10")
	require.NoError(t, err)
	assert.Equal(t, 3, p.UsageCount)

	assert.ErrorIs(t, s.RedeemPromotion(ctx, "NOPE"), ErrNotFound)
}

func TestPromotions_UpdateKeepsUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := fixedNow.Add(-time.Hour)
	_, err := s.CreatePromotion(ctx, schema.Promotion{Code: "FREE", Type: schema.PromotionFreeShipping, Active: true, StartsAt: &start})
	require.NoError(t, err)
	require.NoError(t, s.RedeemPromotion(ctx, "free"))

	p, err := s.UpdatePromotion(ctx, schema.Promotion{Code: "free", Type: schema.PromotionFreeShipping, Active: false, MinPurchase: dec("20")})
	require.NoError(t, err)
	assert.Equal(t, 1, p.UsageCount)
	assert.False(t, p.Active)
	assert.Nil(t, p.StartsAt)

	list, err := s.ListPromotions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, s.DeletePromotion(ctx, "FREE"))
	_, err = s.GetPromotion(ctx, "FREE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutContent_RecordsRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rev, err := s.PutContent(ctx, schema.ContentBlock{Key: "about", Title: "Nosotros", Body: "Recetas de familia."})
	require.NoError(t, err)
	require.NotNil(t, rev)

	rev, err = s.PutContent(ctx, schema.ContentBlock{Key: "about", Title: "Nosotros", Body: "Recetas de familia."})
	require.NoError(t, err)
	assert.Nil(t, rev, "unchanged body records no revision")

	rev, err = s.PutContent(ctx, schema.ContentBlock{Key: "about", Title: "Nosotros", Body: "Recetas de la abuela."})
	require.NoError(t, err)
	require.NotNil(t, rev)

	revs, err := s.ListRevisions(ctx, "about")
	require.NoError(t, err)
	require.Len(t, revs, 2)

	body := ""
	for _, r := range revs {
		var ok bool
		body, ok, err = content.Apply(body, r.Patch)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, "Recetas de la abuela.", body, "replaying revisions rebuilds the body")

	b, err := s.GetContent(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, "Recetas de la abuela.", b.Body)
	_, err = s.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCarts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c, err := s.CreateCart(ctx)
	require.NoError(t, err)

	c.Items = []schema.LineItem{{ProductID: "a", Quantity: 2, UnitPrice: dec("3.00")}}
	require.NoError(t, s.SaveCart(ctx, c))

	got, err := s.GetCart(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	require.NoError(t, s.DeleteCart(ctx, c.ID))
	_, err = s.GetCart(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SaveCart(ctx, c), ErrNotFound)
}

func newOrder(id, number string, items ...schema.LineItem) *schema.Order {
	return &schema.Order{
		ID: id, Number: number,
		Customer:  schema.Customer{Name: "Ana", Email: "ana@example.com"},
		Items:     items,
		Status:    schema.StatusPending,
		Totals:    schema.Totals{Total: dec("10.00")},
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
}

func TestPlaceOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "a", "3.00", 5)
	seedProduct(t, s, "b", "4.00", 1)
	_, err := s.CreatePromotion(ctx, schema.Promotion{Code: "ONCE", Type: schema.PromotionFixed, Value: dec("1"), UsageLimit: 1, Active: true})
	require.NoError(t, err)

	o := newOrder("o1", "DMP-1", schema.LineItem{ProductID: "a", Quantity: 2}, schema.LineItem{ProductID: "b", Quantity: 1})
	o.PromotionCode = "once"
	require.NoError(t, s.PlaceOrder(ctx, o))

	a, _ := s.GetProduct(ctx, "a")
	assert.Equal(t, 3, a.Stock)

	got, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "DMP-1", got.Number)
	assert.True(t, got.Totals.Total.Equal(dec("10")))
	byNumber, err := s.GetOrderByNumber(ctx, "DMP-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", byNumber.ID)

	t.Run("insufficient stock rolls back", func(t *testing.T) {
		o2 := newOrder("o2", "DMP-2", schema.LineItem{ProductID: "a", Quantity: 1}, schema.LineItem{ProductID: "b", Quantity: 1})
		err := s.PlaceOrder(ctx, o2)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		a, _ := s.GetProduct(ctx, "a")
		assert.Equal(t, 3, a.Stock, "stock of earlier lines restored")
		_, err = s.GetOrder(ctx, "o2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("exhausted promotion rolls back", func(t *testing.T) {
		o3 := newOrder("o3", "DMP-3", schema.LineItem{ProductID: "a", Quantity: 1})
		o3.PromotionCode = "ONCE"
		assert.ErrorIs(t, s.PlaceOrder(ctx, o3), promo.ErrUsageLimitReached)
		a, _ := s.GetProduct(ctx, "a")
		assert.Equal(t, 3, a.Stock)
	})

	t.Run("duplicate number conflicts", func(t *testing.T) {
		o4 := newOrder("o4", "DMP-1", schema.LineItem{ProductID: "a", Quantity: 1})
		assert.ErrorIs(t, s.PlaceOrder(ctx, o4), ErrConflict)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "a", "3.00", 5)
	require.NoError(t, s.PlaceOrder(ctx, newOrder("o1", "DMP-1", schema.LineItem{ProductID: "a", Quantity: 2})))

	o, err := s.UpdateOrderStatus(ctx, "o1", schema.StatusProcessing, "packing")
	require.NoError(t, err)
	assert.Equal(t, schema.StatusProcessing, o.Status)

	_, err = s.UpdateOrderStatus(ctx, "o1", schema.StatusCompleted, "")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = s.UpdateOrderStatus(ctx, "o1", schema.StatusCancelled, "customer asked")
	require.NoError(t, err)
	a, _ := s.GetProduct(ctx, "a")
	assert.Equal(t, 5, a.Stock, "cancelling restocks")

	got, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, schema.StatusPending, got.History[0].From)
	assert.Equal(t, "customer asked", got.History[1].Note)

	_, err = s.UpdateOrderStatus(ctx, "missing", schema.StatusProcessing, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPromotions_LimitBelowUsageConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := schema.Promotion{Code: "SAVE10", Type: schema.PromotionPercentage, Value: dec("10"), UsageLimit: 5, Active: true}
	require.NoError(t, s.UpsertPromotion(ctx, p))
	for i := 0; i < 4; i++ {
		require.NoError(t, s.RedeemPromotion(ctx, "SAVE10"))
	}

	p.UsageLimit = 2
	assert.ErrorIs(t, s.UpsertPromotion(ctx, p), ErrConflict)
	_, err := s.UpdatePromotion(ctx, p)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetPromotion(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 5, got.UsageLimit)
	assert.Equal(t, 4, got.UsageCount)

	// Raising the limit, matching the count, or removing the limit are fine.
	for _, limit := range []int{4, 10, 0} {
		p.UsageLimit = limit
		require.NoError(t, s.UpsertPromotion(ctx, p))
		_, err := s.UpdatePromotion(ctx, p)
		require.NoError(t, err)
	}

	_, err = s.UpdatePromotion(ctx, schema.Promotion{Code: "MISSING", Type: schema.PromotionFreeShipping})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "a", "3.00", 100)
	seedProduct(t, s, "b", "3.00", 4)
	seedProduct(t, s, "c", "3.00", 5)
	for i, id := range []string{"o1", "o2", "o3"} {
		o := newOrder(id, "DMP-"+id, schema.LineItem{ProductID: "a", Quantity: 1})
		o.CreatedAt = fixedNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.PlaceOrder(ctx, o))
	}
	for _, to := range []schema.OrderStatus{schema.StatusProcessing, schema.StatusShipped} {
		_, err := s.UpdateOrderStatus(ctx, "o1", to, "")
		require.NoError(t, err)
	}

	all, err := s.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "o3", all[0].ID, "newest first")

	pending, err := s.ListOrders(ctx, schema.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.OrderCount)
	assert.Equal(t, 2, st.OrdersByStatus[schema.StatusPending])
	assert.Equal(t, 1, st.OrdersByStatus[schema.StatusShipped])
	assert.True(t, st.Revenue.Equal(dec("10")), "only shipped and completed orders count")
	assert.Equal(t, 3, st.ProductCount)
	assert.Equal(t, 1, st.LowStockCount, "only stock below the threshold is low")
}
