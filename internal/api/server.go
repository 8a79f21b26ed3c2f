// Package api serves the storefront and admin JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/checkout"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/logging"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// AdminToken guards /admin. When empty every admin request is refused.
	AdminToken string
	Logger     *zap.Logger
	Now        func() time.Time
}

// Server holds the handler dependencies.
type Server struct {
	store      *store.Store
	checkout   *checkout.Service
	adminToken string
	log        *zap.Logger
	now        func() time.Time
}

// New returns a Server over st and svc.
func New(st *store.Store, svc *checkout.Service, opts Options) *Server {
	s := &Server{
		store:      st,
		checkout:   svc,
		adminToken: opts.AdminToken,
		log:        logging.OrNop(opts.Logger),
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)
		r.Get("/categories", s.listCategories)
		r.Get("/shipping-options", s.listShippingOptions)
		r.Get("/content/{key}", s.getContent)

		r.Post("/carts", s.createCart)
		r.Get("/carts/{id}", s.getCart)
		r.Post("/carts/{id}/items", s.addCartItem)
		r.Patch("/carts/{id}/items/{productID}", s.updateCartItem)
		r.Delete("/carts/{id}/items/{productID}", s.removeCartItem)
		r.Delete("/carts/{id}/items", s.clearCart)
		r.Post("/carts/{id}/actions", s.cartActions)

		r.Post("/quote", s.quote)
		r.Post("/checkout", s.placeOrder)
		r.Get("/orders/{id}", s.getOrder)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Get("/products", s.adminListProducts)
		r.Post("/products", s.adminCreateProduct)
		r.Get("/products/{id}", s.adminGetProduct)
		r.Put("/products/{id}", s.adminUpdateProduct)
		r.Delete("/products/{id}", s.adminDeleteProduct)

		r.Get("/categories", s.listCategories)
		r.Post("/categories", s.adminCreateCategory)
		r.Put("/categories/{id}", s.adminUpdateCategory)
		r.Delete("/categories/{id}", s.adminDeleteCategory)

		r.Get("/promotions", s.adminListPromotions)
		r.Post("/promotions", s.adminCreatePromotion)
		r.Get("/promotions/{code}", s.adminGetPromotion)
		r.Put("/promotions/{code}", s.adminUpdatePromotion)
		r.Delete("/promotions/{code}", s.adminDeletePromotion)

		r.Get("/shipping-options", s.adminListShippingOptions)
		r.Post("/shipping-options", s.adminCreateShippingOption)
		r.Put("/shipping-options/{id}", s.adminUpdateShippingOption)
		r.Delete("/shipping-options/{id}", s.adminDeleteShippingOption)

		r.Get("/content", s.adminListContent)
		r.Put("/content/{key}", s.adminPutContent)
		r.Get("/content/{key}/revisions", s.adminListRevisions)

		r.Get("/orders", s.adminListOrders)
		r.Get("/orders/{id}", s.adminGetOrder)
		r.Patch("/orders/{id}/status", s.adminUpdateOrderStatus)

		r.Get("/stats", s.adminStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, codeError(http.StatusNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, codeError(http.StatusMethodNotAllowed, "method %s not allowed", r.Method))
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, codeError(http.StatusServiceUnavailable, "database unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return codeError(http.StatusBadRequest, "invalid JSON body: %s", err)
	}
	return nil
}

// ListenAndServe serves srv on srv.Addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log *zap.Logger) error {
	log = logging.OrNop(log)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	}
	log.Info("listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
