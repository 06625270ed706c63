package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/myshop/internal/domain/repository"
)

// ListProducts handles GET /api/product.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := repository.Collect(h.products.Query(r.Context(), nil), 0)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct handles GET /api/product/{productId}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("productId"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}
