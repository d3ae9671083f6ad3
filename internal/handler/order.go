package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/checkout-api/internal/domain/order"
)

// CreateOrder starts a checkout and redirects to the new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeCreate(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.orders.CreateLine(r.Context(), *req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/order/"+strconv.FormatInt(created.OrderID, 10), http.StatusFound)
}

// GetOrder returns the resolved order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		h.fail(w, r, order.NotFound(order.ContextOrder, order.CodeOrderDoesNotExist, "order does not exist"))
		return
	}
	d, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeDetails(w, d)
}

// UpdateOrder attaches shipping information or pays, depending on which key
// the body carries.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := orderID(r)
	if !ok {
		h.fail(w, r, order.NotFound(order.ContextOrder, order.CodeOrderNotFound, "order does not exist"))
		return
	}
	if err := h.orders.Require(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}

	data, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req, err := decodeUpdate(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var d *order.Details
	if req.Shipping != nil {
		d, err = h.orders.AttachShipping(ctx, id, *req.Shipping)
	} else {
		d, err = h.orders.AttachPayment(ctx, id, *req.Card)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeDetails(w, d)
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func writeDetails(w http.ResponseWriter, d *order.Details) {
	var e jx.Encoder
	encodeDetails(&e, d)
	writeJSON(w, http.StatusOK, &e)
}
