package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator resolves a coupon code, checks its eligibility against the order,
// and computes the discount. Each violated condition surfaces as a distinct
// error so callers can report the specific reason.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate looks up the coupon, checks the validity window, minimum order
// value, and usage cap, then returns the coupon together with the evaluated
// discount amount. It does not increment the usage counter; that happens in
// the order transaction.
func (v *Validator) Validate(ctx context.Context, code string, subtotal, shippingCost decimal.Decimal) (*Coupon, decimal.Decimal, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, decimal.Zero, ErrNotFound
		}
		return nil, decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, decimal.Zero, ErrExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, decimal.Zero, ErrExpired
	}

	if c.MinOrderValue.IsPositive() && subtotal.LessThan(c.MinOrderValue) {
		return nil, decimal.Zero, &BelowMinimumError{Minimum: c.MinOrderValue, Subtotal: subtotal}
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, decimal.Zero, ErrExhausted
	}

	amount, err := Evaluate(c, subtotal, shippingCost)
	if err != nil {
		return nil, decimal.Zero, err
	}

	return c, amount, nil
}
