package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate computes the discount amount for the coupon against an order's
// subtotal and shipping cost. Pure function: no side effects, no clock, no
// eligibility checks (those belong to the Validator).
//
// Percentage and fixed discounts are computed against the subtotal only; a
// free-shipping discount equals the already-computed shipping cost, so it is
// naturally zero when shipping itself is free.
func Evaluate(c *Coupon, subtotal, shippingCost decimal.Decimal) (decimal.Decimal, error) {
	switch c.Type {
	case TypePercentage:
		return subtotal.Mul(c.Value).Div(hundred).Round(2), nil
	case TypeFixed:
		return c.Value.Round(2), nil
	case TypeFreeShipping:
		return shippingCost.Round(2), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.Type)
	}
}
