// Package order implements the checkout workflow: order assembly with stock
// reservation, coupon application, shipping selection, payment-preference
// creation, and cancellation.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of an order. Only PENDING and CONFIRMED are reachable from this
// workflow; later states are driven by payment and shipment webhooks.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// Cancellable reports whether an order in this status may still be cancelled
// by the buyer.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Item is one order line. Unit price and line total are snapshots taken at
// checkout, decoupled from later variant price changes.
type Item struct {
	VariantID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Order is the checkout aggregate root.
type Order struct {
	ID         string
	Number     string
	UserID     string
	AddressID  string
	Status     Status
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	Items      []Item

	PaymentMethod string
	CouponCode    string

	ShippingCarrier      string
	ShippingService      string
	ShippingLeadTimeDays int

	CancelReason string
	CancelledAt  *time.Time
	CreatedAt    time.Time
}

// CancelRequest asks the repository to cancel an order atomically.
type CancelRequest struct {
	OrderID string
	UserID  string
	Reason  string
	At      time.Time
}

// Repository persists orders. Create and Cancel are transactional: every
// reserved-stock mutation shares the transaction with the order rows that
// justify it.
type Repository interface {
	// Create persists the order and its items, increments reserved stock
	// for every line under row locks, increments the coupon's used count
	// when CouponCode is set, and clears the user's cart, all or nothing.
	// Returns *InsufficientStockError when the locked re-check fails and
	// coupon.ErrExhausted when the usage cap is hit concurrently.
	Create(ctx context.Context, o *Order) error

	// Cancel marks the order CANCELLED, releases its stock reservations,
	// and cancels its payment record if one exists. Returns ErrNotFound
	// when the order does not exist or belongs to another user, and
	// ErrNotCancellable when its status does not allow cancellation.
	Cancel(ctx context.Context, req CancelRequest) (*Order, error)

	GetForUser(ctx context.Context, id, userID string) (*Order, error)
}

// newOrderNumber derives a human-readable order number from the current time
// plus a random suffix, so that same-second checkouts cannot collide.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("PF-%s-%s", now.UTC().Format("060102-150405"), suffix)
}
