package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		coupon   *Coupon
		subtotal string
		shipping string
		want     string
	}{
		{
			name:     "percentage of subtotal",
			coupon:   &Coupon{Code: "TEN", Type: TypePercentage, Value: decimal.NewFromInt(10)},
			subtotal: "250.00",
			shipping: "20.00",
			want:     "25.00",
		},
		{
			name:     "percentage ignores shipping",
			coupon:   &Coupon{Code: "HALF", Type: TypePercentage, Value: decimal.NewFromInt(50)},
			subtotal: "100.00",
			shipping: "99.00",
			want:     "50.00",
		},
		{
			name:     "fixed amount regardless of subtotal",
			coupon:   &Coupon{Code: "V50", Type: TypeFixed, Value: decimal.NewFromInt(50)},
			subtotal: "30.00",
			shipping: "10.00",
			want:     "50.00",
		},
		{
			name:     "free shipping equals computed shipping cost",
			coupon:   &Coupon{Code: "SHIP", Type: TypeFreeShipping},
			subtotal: "250.00",
			shipping: "32.40",
			want:     "32.40",
		},
		{
			name:     "free shipping on already free shipping is zero",
			coupon:   &Coupon{Code: "SHIP", Type: TypeFreeShipping},
			subtotal: "500.00",
			shipping: "0.00",
			want:     "0.00",
		},
		{
			name:     "percentage rounds to two places",
			coupon:   &Coupon{Code: "P15", Type: TypePercentage, Value: decimal.NewFromInt(15)},
			subtotal: "33.33",
			shipping: "0.00",
			want:     "5.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.coupon,
				decimal.RequireFromString(tt.subtotal),
				decimal.RequireFromString(tt.shipping),
			)

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got),
				"expected %s, got %s", tt.want, got)
		})
	}
}

func TestEvaluate_UnknownType(t *testing.T) {
	_, err := Evaluate(&Coupon{Code: "X", Type: "bogo"}, decimal.NewFromInt(100), decimal.Zero)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported discount type")
}
