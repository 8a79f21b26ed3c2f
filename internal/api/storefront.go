package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/cart"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/checkout"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema/validate"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := s.store.ListProducts(r.Context(), store.ProductFilter{
		CategoryID:   q.Get("category"),
		FeaturedOnly: q.Get("featured") == "true",
		Query:        q.Get("q"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !p.Active {
		s.writeError(w, r, codeError(http.StatusNotFound, "product %s: not found", p.ID))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) listShippingOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.ListShippingOptions(r.Context(), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetContent(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// cartView is a cart with its derived count and subtotal.
type cartView struct {
	*schema.Cart
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newCartView(c *schema.Cart) cartView {
	return cartView{Cart: c, Count: cart.Count(c.Items), Subtotal: cart.Subtotal(c.Items)}
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.CreateCart(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartView(c))
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(c))
}

// applyCartAction loads the cart, applies a, and saves the result. Added
// lines take their name and price from the catalog and may not exceed stock.
func (s *Server) applyCartAction(w http.ResponseWriter, r *http.Request, a cart.Action) {
	ctx := r.Context()
	c, err := s.store.GetCart(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	productID := a.ProductID
	if a.Type == cart.ActionAdd {
		productID = a.Item.ProductID
	}
	if a.Type == cart.ActionAdd || (a.Type == cart.ActionUpdateQuantity && a.Quantity > 0) {
		p, err := s.store.GetProduct(ctx, productID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !p.Active) {
			s.writeError(w, r, codeError(http.StatusUnprocessableEntity, "product %s is not available", productID))
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if a.Type == cart.ActionAdd {
			a.Item = schema.LineItem{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: a.Item.Quantity}
		}
		want := a.Quantity
		if a.Type == cart.ActionAdd {
			want = quantityOf(c.Items, p.ID) + a.Item.Quantity
		}
		if want > p.Stock {
			s.writeError(w, r, codeError(http.StatusConflict, "only %d of %s in stock", p.Stock, p.Name))
			return
		}
	}

	items, err := cart.Apply(c.Items, a)
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, invalid(err))
		return
	}
	c.Items = items
	if err := s.store.SaveCart(ctx, c); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(c))
}

func quantityOf(items []schema.LineItem, productID string) int {
	for _, it := range items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	s.applyCartAction(w, r, cart.Action{Type: cart.ActionAdd, Item: schema.LineItem{ProductID: body.ProductID, Quantity: body.Quantity}})
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyCartAction(w, r, cart.Action{Type: cart.ActionUpdateQuantity, ProductID: chi.URLParam(r, "productID"), Quantity: body.Quantity})
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s.applyCartAction(w, r, cart.Action{Type: cart.ActionRemove, ProductID: chi.URLParam(r, "productID")})
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.applyCartAction(w, r, cart.Action{Type: cart.ActionClear})
}

// cartActions accepts the browser reducer's serialized actions as-is.
func (s *Server) cartActions(w http.ResponseWriter, r *http.Request) {
	var a cart.Action
	if err := decodeJSON(w, r, &a); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.applyCartAction(w, r, a)
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	var req checkout.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.checkout.Quote(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, codeError(http.StatusBadRequest, "reading body: %s", err))
		return
	}
	req, err := validate.ParseCheckout(raw, s.now())
	if err != nil {
		if strings.HasPrefix(err.Error(), "JSON parse failed") {
			s.writeError(w, r, codeError(http.StatusBadRequest, "%s", err))
			return
		}
		s.writeError(w, r, invalid(err))
		return
	}
	o, err := s.checkout.Checkout(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// getOrder looks an order up by id or number. The customer's email must be
// given and match, so order numbers alone do not expose addresses.
func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "id")
	o, err := s.store.GetOrder(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		o, err = s.store.GetOrderByNumber(ctx, key)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("email")), o.Customer.Email) {
		s.writeError(w, r, codeError(http.StatusNotFound, "order %s: not found", key))
		return
	}
	writeJSON(w, http.StatusOK, o)
}
