// Package handler serves the checkout HTTP API.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-api/internal/domain/order"
	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/domain/product"
	"github.com/xenking/checkout-api/internal/envelope"
)

const maxBody = 1 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// InvariantStatus is the status of unknown-error responses caused by
	// broken stored state. Defaults to 500.
	InvariantStatus int
}

// Handler maps HTTP requests onto the order service.
type Handler struct {
	products        product.Repository
	orders          *order.Service
	invariantStatus int
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, products product.Repository, orders *order.Service) *Handler {
	if cfg.InvariantStatus == 0 {
		cfg.InvariantStatus = http.StatusInternalServerError
	}
	return &Handler{
		products:        products,
		orders:          orders,
		invariantStatus: cfg.InvariantStatus,
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Post("/order", h.CreateOrder)
	r.Get("/order/{id}", h.GetOrder)
	r.Put("/order/{id}", h.UpdateOrder)
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, notValid()
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// fail renders err. Checkout errors use their own context and code, gateway
// rejections are forwarded as received, anything else is an unknown-error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var oErr *order.Error
	if errors.As(err, &oErr) {
		status := http.StatusUnprocessableEntity
		switch oErr.Kind {
		case order.KindNotFound:
			status = http.StatusNotFound
		case order.KindInvariant:
			status = h.invariantStatus
			zctx.From(r.Context()).Error("Invariant violated", zap.Error(err))
		}
		envelope.Write(w, status, envelope.Entry{
			Context: oErr.Context, Code: oErr.Code, Name: oErr.Message,
		})
		return
	}

	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		switch {
		case gwErr.Status != 0:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(gwErr.Status)
			_, _ = w.Write(gwErr.Body)
		case gwErr.Timeout:
			envelope.Write(w, http.StatusGatewayTimeout, envelope.Entry{
				Context: order.ContextCreditCard, Code: order.CodeGatewayTimeout, Name: "payment processor timed out",
			})
		default:
			envelope.Write(w, http.StatusBadGateway, envelope.Entry{
				Context: order.ContextCreditCard, Code: order.CodeGatewayUnavailable, Name: "payment processor is unavailable",
			})
		}
		return
	}

	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	envelope.Write(w, http.StatusInternalServerError, envelope.Entry{
		Context: order.ContextOrder, Code: order.CodeUnknownError, Name: "unexpected error, contact the site administrator",
	})
}
