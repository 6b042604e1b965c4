// Package handler exposes the HTTP API: catalog reads, shipping quotes, cart
// access, and the checkout workflow. Handlers translate between JSON and the
// domain layer; business rules live in the domain packages.
package handler

import (
	"context"
	"net/http"

	"github.com/lavandier/parfum-shop/internal/domain/cart"
	"github.com/lavandier/parfum-shop/internal/domain/catalog"
	"github.com/lavandier/parfum-shop/internal/domain/order"
	"github.com/lavandier/parfum-shop/internal/domain/payment"
	"github.com/lavandier/parfum-shop/internal/domain/shipping"
)

// Estimator yields delivery options for a destination and items.
type Estimator interface {
	Estimate(ctx context.Context, destPostalCode string, items []shipping.Item) []shipping.Option
}

// OrderService is the checkout workflow surface the handlers depend on.
type OrderService interface {
	CreateOrder(ctx context.Context, req order.CreateRequest) (*order.CreateResult, error)
	CancelOrder(ctx context.Context, orderID, userID, reason string) (*order.Order, error)
	GetOrder(ctx context.Context, orderID, userID string) (*order.Order, error)
}

// Handler serves the storefront API, delegating business logic to the order
// service and the domain repositories.
type Handler struct {
	variants  catalog.Repository
	estimator Estimator
	carts     cart.Repository
	orders    OrderService
	payments  payment.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	variants catalog.Repository,
	estimator Estimator,
	carts cart.Repository,
	orders OrderService,
	payments payment.Repository,
) *Handler {
	return &Handler{
		variants:  variants,
		estimator: estimator,
		carts:     carts,
		orders:    orders,
		payments:  payments,
	}
}

// Routes registers every API route on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/shipping/quotes", h.QuoteShipping)
	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("PUT /api/cart", h.ReplaceCart)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/cancel", h.CancelOrder)
}
