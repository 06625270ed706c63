// Package handler exposes the order workflow and the product catalog over
// HTTP. Bodies are encoded with go-faster/jx.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// OrderService is the order workflow consumed by the handler.
type OrderService interface {
	Create(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context, f order.ListFilter) ([]order.Order, error)
}

var _ OrderService = (*order.Service)(nil)

// Handler serves the /api routes.
type Handler struct {
	products product.Repository
	orders   OrderService
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(products product.Repository, orders OrderService) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/order", h.CreateOrder)
	mux.HandleFunc("GET /api/order", h.ListOrders)
	mux.HandleFunc("GET /api/order/{orderId}", h.GetOrder)
	mux.HandleFunc("GET /api/product", h.ListProducts)
	mux.HandleFunc("GET /api/product/{productId}", h.GetProduct)
}
