package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/order"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/promo"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/redact"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema/validate"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
)

// requireAdmin checks the bearer token against the configured admin token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if s.adminToken == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			s.writeError(w, r, codeError(http.StatusUnauthorized, "admin token required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Products ---

func (s *Server) adminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context(), store.ProductFilter{
		CategoryID:      r.URL.Query().Get("category"),
		Query:           r.URL.Query().Get("q"),
		IncludeInactive: true,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) adminGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p schema.Product
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.Product(p); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	created, err := s.store.CreateProduct(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p schema.Product
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := validate.Product(p); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	updated, err := s.store.UpdateProduct(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Categories ---

func (s *Server) adminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c schema.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.Category(c); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	created, err := s.store.CreateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) adminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c schema.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := validate.Category(c); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	updated, err := s.store.UpdateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) adminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Promotions ---

func checkPromotion(p schema.Promotion) error {
	if err := validate.Promotion(p); err != nil {
		return invalid(err)
	}
	if err := promo.CheckCondition(p.Condition); err != nil {
		return invalid(err)
	}
	return nil
}

func (s *Server) adminListPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := s.store.ListPromotions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

func (s *Server) adminGetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPromotion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) adminCreatePromotion(w http.ResponseWriter, r *http.Request) {
	var p schema.Promotion
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.UsageCount = 0
	if err := checkPromotion(p); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.store.CreatePromotion(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) adminUpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var p schema.Promotion
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.Code = chi.URLParam(r, "code")
	existing, err := s.store.GetPromotion(r.Context(), p.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// The stored count is authoritative; a limit below it is rejected.
	p.UsageCount = existing.UsageCount
	if err := checkPromotion(p); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.store.UpdatePromotion(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) adminDeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePromotion(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Shipping options ---

func (s *Server) adminListShippingOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.ListShippingOptions(r.Context(), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) adminCreateShippingOption(w http.ResponseWriter, r *http.Request) {
	var o schema.ShippingOption
	if err := decodeJSON(w, r, &o); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.ShippingOption(o); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	created, err := s.store.CreateShippingOption(r.Context(), o)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) adminUpdateShippingOption(w http.ResponseWriter, r *http.Request) {
	var o schema.ShippingOption
	if err := decodeJSON(w, r, &o); err != nil {
		s.writeError(w, r, err)
		return
	}
	o.ID = chi.URLParam(r, "id")
	if err := validate.ShippingOption(o); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	updated, err := s.store.UpdateShippingOption(r.Context(), o)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) adminDeleteShippingOption(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteShippingOption(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Content ---

func (s *Server) adminListContent(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.store.ListContent(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) adminPutContent(w http.ResponseWriter, r *http.Request) {
	var b schema.ContentBlock
	if err := decodeJSON(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}
	b.Key = chi.URLParam(r, "key")
	if err := validate.ContentBlock(b); err != nil {
		s.writeError(w, r, invalid(err))
		return
	}
	rev, err := s.store.PutContent(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.store.GetContent(r.Context(), b.Key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*schema.ContentBlock
		Revision *schema.ContentRevision `json:"revision,omitempty"`
	}{saved, rev})
}

func (s *Server) adminListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.store.ListRevisions(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

// --- Orders ---

func (s *Server) adminListOrders(w http.ResponseWriter, r *http.Request) {
	status := schema.OrderStatus(r.URL.Query().Get("status"))
	if status != "" && !schema.IsValidStatus(status) {
		s.writeError(w, r, codeError(http.StatusBadRequest, "unknown status %q", status))
		return
	}
	orders, err := s.store.ListOrders(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*schema.Order
		Next []schema.OrderStatus `json:"next_statuses"`
	}{o, order.Next(o.Status)})
}

func (s *Server) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status schema.OrderStatus `json:"status"`
		Note   string             `json:"note"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !schema.IsValidStatus(body.Status) {
		s.writeError(w, r, codeError(http.StatusUnprocessableEntity, "unknown status %q", body.Status))
		return
	}
	o, err := s.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), body.Status, redact.Redact(body.Note))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) adminStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
