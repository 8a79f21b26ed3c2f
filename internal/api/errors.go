package api

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/cart"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/checkout"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/order"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/payment"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/store"
)

// httpErr carries an HTTP status code through handler error returns.
type httpErr struct {
	code int
	msg  string
}

func (e *httpErr) Error() string { return e.msg }

// codeError returns an httpErr for the given status code.
func codeError(code int, format string, args ...any) error {
	return &httpErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// invalid wraps a validation error as 422.
func invalid(err error) error {
	return &httpErr{code: http.StatusUnprocessableEntity, msg: err.Error()}
}

// statusFor maps an error to its response status.
func statusFor(err error) int {
	var he *httpErr
	var declined *payment.DeclinedError
	switch {
	case errors.As(err, &he):
		return he.code
	case errors.As(err, &declined):
		return http.StatusPaymentRequired
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, checkout.ErrOutOfStock),
		errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrInvalid),
		errors.Is(err, checkout.ErrProductUnavailable),
		errors.Is(err, checkout.ErrShippingUnavailable),
		errors.Is(err, checkout.ErrPromotionInvalid),
		errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError answers {"error": "..."}. Internal errors are logged and their
// detail withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
