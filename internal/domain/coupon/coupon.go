package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed discounts a fixed monetary amount.
	TypeFixed Type = "fixed"
	// TypeFreeShipping discounts exactly the computed shipping cost.
	TypeFreeShipping Type = "free_shipping"
)

var (
	// ErrNotFound is returned when a coupon code does not resolve to an
	// active coupon.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when the current time falls outside the
	// coupon's validity window.
	ErrExpired = errors.New("coupon expired")
	// ErrExhausted is returned when a coupon has reached its usage limit.
	ErrExhausted = errors.New("coupon usage limit reached")
)

// BelowMinimumError indicates the order subtotal does not meet the coupon's
// minimum order value.
type BelowMinimumError struct {
	Minimum  decimal.Decimal
	Subtotal decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("order subtotal %s is below coupon minimum %s", e.Subtotal, e.Minimum)
}

// Coupon is a stored discount rule.
type Coupon struct {
	Code          string
	Type          Type
	Value         decimal.Decimal
	MinOrderValue decimal.Decimal // zero means no minimum
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	UsageLimit    int // zero means unlimited
	UsedCount     int
	Description   string
	Active        bool
}

// Repository provides coupon lookups. The used-count increment is owned by
// the order transaction, not by this interface.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Upsert(ctx context.Context, c *Coupon) error
}
