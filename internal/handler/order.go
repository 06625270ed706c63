package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/myshop/internal/domain/order"
)

// CreateOrder handles POST /api/order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeCreateOrder(jx.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), 4096))
	if err != nil {
		writeAPIError(w, apiError{
			Code:    http.StatusBadRequest,
			Message: errors.Wrap(err, "malformed request body").Error(),
		})
		return
	}

	o, err := h.orders.Create(ctx, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID),
		zap.Int("line_items", len(o.LineItems)),
	)

	var e jx.Encoder
	encodeOrder(&e, o)
	w.Header().Set("Location", "/api/order/"+o.ID)
	writeJSON(w, http.StatusCreated, &e)
}

// GetOrder handles GET /api/order/{orderId}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("orderId"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

// ListOrders handles GET /api/order with optional customer and limit filters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{Customer: q.Get("customer")}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeAPIError(w, apiError{
				Code:    http.StatusBadRequest,
				Message: "invalid limit: must be a non-negative integer",
				Field:   "limit",
			})
			return
		}
		f.Limit = n
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
