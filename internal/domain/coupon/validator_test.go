package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	coupon *Coupon
	err    error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Coupon, error) {
	return m.coupon, m.err
}

func (m *mockCouponRepo) Upsert(_ context.Context, _ *Coupon) error {
	return nil
}

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		subtotal   string
		shipping   string
		wantAmount string
		wantErr    error
	}{
		{
			name: "valid percentage code returns discount",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "BIENVENUE10", Type: TypePercentage, Value: decimal.NewFromInt(10),
			}},
			subtotal:   "250.00",
			shipping:   "20.00",
			wantAmount: "25.00",
		},
		{
			name:     "unknown code returns ErrNotFound",
			repo:     &mockCouponRepo{err: ErrNotFound},
			subtotal: "100.00",
			shipping: "10.00",
			wantErr:  ErrNotFound,
		},
		{
			name: "valid_until in the past returns ErrExpired",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "OLD", Type: TypePercentage, Value: decimal.NewFromInt(10),
				ValidUntil: &pastTime,
			}},
			subtotal: "100.00",
			shipping: "10.00",
			wantErr:  ErrExpired,
		},
		{
			name: "valid_from in the future returns ErrExpired",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "SOON", Type: TypePercentage, Value: decimal.NewFromInt(10),
				ValidFrom: &futureTime,
			}},
			subtotal: "100.00",
			shipping: "10.00",
			wantErr:  ErrExpired,
		},
		{
			name: "inside validity window succeeds",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "WINDOW", Type: TypeFixed, Value: decimal.NewFromInt(15),
				ValidFrom: &pastTime, ValidUntil: &futureTime,
			}},
			subtotal:   "100.00",
			shipping:   "10.00",
			wantAmount: "15.00",
		},
		{
			name: "usage limit reached returns ErrExhausted",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "LIMITED", Type: TypePercentage, Value: decimal.NewFromInt(10),
				UsageLimit: 100, UsedCount: 100,
			}},
			subtotal: "100.00",
			shipping: "10.00",
			wantErr:  ErrExhausted,
		},
		{
			name: "usage under limit succeeds",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "ROOM", Type: TypePercentage, Value: decimal.NewFromInt(10),
				UsageLimit: 100, UsedCount: 99,
			}},
			subtotal:   "100.00",
			shipping:   "10.00",
			wantAmount: "10.00",
		},
		{
			name: "zero usage limit means unlimited",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "FOREVER", Type: TypeFixed, Value: decimal.NewFromInt(5),
				UsedCount: 12345,
			}},
			subtotal:   "100.00",
			shipping:   "10.00",
			wantAmount: "5.00",
		},
		{
			name: "free shipping coupon discounts the shipping cost",
			repo: &mockCouponRepo{coupon: &Coupon{
				Code: "FRETEGRATIS", Type: TypeFreeShipping,
			}},
			subtotal:   "250.00",
			shipping:   "27.90",
			wantAmount: "27.90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			_, amount, err := v.Validate(context.Background(), "CODE",
				decimal.RequireFromString(tt.subtotal),
				decimal.RequireFromString(tt.shipping),
			)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(amount),
				"expected amount %s, got %s", tt.wantAmount, amount)
		})
	}
}

func TestValidator_BelowMinimum(t *testing.T) {
	repo := &mockCouponRepo{coupon: &Coupon{
		Code: "VIP50", Type: TypeFixed, Value: decimal.NewFromInt(50),
		MinOrderValue: decimal.NewFromInt(200),
	}}

	v := NewValidator(repo)
	_, _, err := v.Validate(context.Background(), "VIP50",
		decimal.RequireFromString("150.00"), decimal.Zero)

	var bmErr *BelowMinimumError
	require.ErrorAs(t, err, &bmErr)
	assert.True(t, decimal.NewFromInt(200).Equal(bmErr.Minimum))
	assert.True(t, decimal.RequireFromString("150.00").Equal(bmErr.Subtotal))
}

func TestValidator_MinimumMetExactly(t *testing.T) {
	repo := &mockCouponRepo{coupon: &Coupon{
		Code: "VIP50", Type: TypeFixed, Value: decimal.NewFromInt(50),
		MinOrderValue: decimal.NewFromInt(200),
	}}

	v := NewValidator(repo)
	_, amount, err := v.Validate(context.Background(), "VIP50",
		decimal.RequireFromString("200.00"), decimal.Zero)

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(amount))
}
