package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavandier/parfum-shop/internal/domain/auth"
	"github.com/lavandier/parfum-shop/internal/domain/cart"
	"github.com/lavandier/parfum-shop/internal/domain/catalog"
	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/domain/order"
	"github.com/lavandier/parfum-shop/internal/domain/payment"
	"github.com/lavandier/parfum-shop/internal/domain/shipping"
)

type stubCatalog struct {
	variants []catalog.Variant
}

func (s *stubCatalog) List(_ context.Context) ([]catalog.Variant, error) {
	return s.variants, nil
}

func (s *stubCatalog) GetByID(_ context.Context, id string) (*catalog.Variant, error) {
	for _, v := range s.variants {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *stubCatalog) GetActiveWithStock(_ context.Context, ids []string) ([]catalog.VariantStock, error) {
	var out []catalog.VariantStock
	for _, id := range ids {
		for _, v := range s.variants {
			if v.ID == id && v.Active {
				out = append(out, catalog.VariantStock{
					Variant: v,
					Stock:   catalog.Stock{VariantID: id, OnHand: 10},
				})
			}
		}
	}
	return out, nil
}

type stubEstimator struct {
	options []shipping.Option
}

func (s *stubEstimator) Estimate(_ context.Context, _ string, _ []shipping.Item) []shipping.Option {
	return s.options
}

type stubCart struct {
	lines map[string][]cart.Line
}

func (s *stubCart) ListByUser(_ context.Context, userID string) ([]cart.Line, error) {
	return s.lines[userID], nil
}

func (s *stubCart) Replace(_ context.Context, userID string, lines []cart.Line) error {
	if s.lines == nil {
		s.lines = make(map[string][]cart.Line)
	}
	s.lines[userID] = lines
	return nil
}

type stubOrderService struct {
	createResult *order.CreateResult
	createErr    error
	cancelOrder  *order.Order
	cancelErr    error
	getOrder     *order.Order
	getErr       error
}

func (s *stubOrderService) CreateOrder(_ context.Context, _ order.CreateRequest) (*order.CreateResult, error) {
	return s.createResult, s.createErr
}

func (s *stubOrderService) CancelOrder(_ context.Context, _, _, _ string) (*order.Order, error) {
	return s.cancelOrder, s.cancelErr
}

func (s *stubOrderService) GetOrder(_ context.Context, _, _ string) (*order.Order, error) {
	return s.getOrder, s.getErr
}

type stubPayments struct {
	record *payment.Record
}

func (s *stubPayments) Create(_ context.Context, _ *payment.Record) error { return nil }

func (s *stubPayments) GetByOrderID(_ context.Context, _ string) (*payment.Record, error) {
	if s.record == nil {
		return nil, payment.ErrNotFound
	}
	return s.record, nil
}

type testEnv struct {
	catalog   *stubCatalog
	estimator *stubEstimator
	carts     *stubCart
	orders    *stubOrderService
	payments  *stubPayments
	mux       *http.ServeMux
}

func newTestEnv() *testEnv {
	env := &testEnv{
		catalog: &stubCatalog{variants: []catalog.Variant{
			{
				ID: "pv-noir-50", Name: "Noir 50ml", Brand: "Maison L",
				Price:    decimal.RequireFromString("100.00"),
				WeightKg: 0.5,
				Dimensions: catalog.Dimensions{
					WidthCm: 10, HeightCm: 15, LengthCm: 8,
				},
				Active: true,
			},
		}},
		estimator: &stubEstimator{options: []shipping.Option{
			{Carrier: "correio", Service: "standard", Price: decimal.RequireFromString("20.00"), LeadTimeDays: 5},
		}},
		carts:    &stubCart{},
		orders:   &stubOrderService{},
		payments: &stubPayments{},
	}
	env.mux = http.NewServeMux()
	h := NewHandler(env.catalog, env.estimator, env.carts, env.orders, env.payments)
	h.Routes(env.mux)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func TestListProducts(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "pv-noir-50", resp[0]["id"])
	assert.Equal(t, "100", resp[0]["price"])
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/products/nope", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteShipping(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/shipping/quotes",
		`{"postal_code":"04538-133","items":[{"variant_id":"pv-noir-50","quantity":2}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Options []shipping.Option `json:"options"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "standard", resp.Options[0].Service)
}

func TestQuoteShipping_UnknownVariant(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/shipping/quotes",
		`{"postal_code":"04538-133","items":[{"variant_id":"ghost","quantity":1}]}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuoteShipping_Validation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/shipping/quotes", `{"postal_code":"","items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRoundTrip(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPut, "/api/cart",
		`{"user_id":"usr-1","items":[{"variant_id":"pv-noir-50","quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart?user_id=usr-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []cart.Line `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestCreateOrder_Success(t *testing.T) {
	env := newTestEnv()
	env.orders.createResult = &order.CreateResult{
		Order: &order.Order{
			ID:       "ord-1",
			Number:   "PF-260829-120000-AB12CD",
			Status:   order.StatusPending,
			Subtotal: decimal.RequireFromString("250.00"),
			Shipping: decimal.RequireFromString("20.00"),
			Discount: decimal.RequireFromString("25.00"),
			Total:    decimal.RequireFromString("245.00"),
			Items: []order.Item{
				{VariantID: "pv-noir-50", Name: "Noir 50ml", Quantity: 2,
					UnitPrice: decimal.RequireFromString("100.00"),
					LineTotal: decimal.RequireFromString("200.00")},
			},
			CreatedAt: time.Now(),
		},
		PaymentRedirect: "https://pay.example/p/pref-1",
	}

	rec := env.do(t, http.MethodPost, "/api/orders",
		`{"user_id":"usr-1","address_id":"addr-1","payment_method":"card","items":[{"variant_id":"pv-noir-50","quantity":2}],"coupon_code":"DIX10","payer":{"email":"b@example.com","name":"B"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp createOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ord-1", resp.Order.ID)
	assert.Equal(t, "245", resp.Order.Total.String())
	assert.Equal(t, "https://pay.example/p/pref-1", resp.PaymentRedirect)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	env.orders.createErr = &order.InsufficientStockError{Shortages: []order.Shortage{
		{VariantID: "pv-noir-50", Requested: 2, Available: 1},
	}}

	rec := env.do(t, http.MethodPost, "/api/orders",
		`{"user_id":"usr-1","address_id":"addr-1","items":[{"variant_id":"pv-noir-50","quantity":2}]}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Details struct {
			Shortages []order.Shortage `json:"shortages"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Details.Shortages, 1)
	assert.Equal(t, 1, resp.Details.Shortages[0].Available)
	assert.Equal(t, 2, resp.Details.Shortages[0].Requested)
}

func TestCreateOrder_CouponErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"not found", coupon.ErrNotFound, "not_found"},
		{"expired", coupon.ErrExpired, "expired"},
		{"exhausted", coupon.ErrExhausted, "exhausted"},
		{"below minimum", &coupon.BelowMinimumError{
			Minimum:  decimal.RequireFromString("150.00"),
			Subtotal: decimal.RequireFromString("100.00"),
		}, "below_minimum"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.orders.createErr = tc.err

			rec := env.do(t, http.MethodPost, "/api/orders",
				`{"user_id":"usr-1","address_id":"addr-1","items":[{"variant_id":"pv-noir-50","quantity":1}],"coupon_code":"X"}`)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var resp struct {
				Details struct {
					Reason string `json:"reason"`
				} `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.reason, resp.Details.Reason)
		})
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/orders", `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv()
	now := time.Now()
	env.orders.cancelOrder = &order.Order{
		ID: "ord-1", Status: order.StatusCancelled,
		CancelReason: "changed my mind", CancelledAt: &now,
	}

	rec := env.do(t, http.MethodPost, "/api/orders/ord-1/cancel",
		`{"user_id":"usr-1","reason":"changed my mind"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestCancelOrder_Conflict(t *testing.T) {
	env := newTestEnv()
	env.orders.cancelErr = order.ErrNotCancellable

	rec := env.do(t, http.MethodPost, "/api/orders/ord-1/cancel", `{"user_id":"usr-1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetOrder_WithPayment(t *testing.T) {
	env := newTestEnv()
	env.orders.getOrder = &order.Order{ID: "ord-1", Status: order.StatusPending}
	env.payments.record = &payment.Record{
		OrderID: "ord-1", PreferenceID: "pref-1",
		Status: payment.StatusPending, Amount: decimal.RequireFromString("245.00"),
	}

	rec := env.do(t, http.MethodGet, "/api/orders/ord-1?user_id=usr-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Payment *paymentResponse `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "pref-1", resp.Payment.PreferenceID)
}

func TestGetOrder_NotFound(t *testing.T) {
	env := newTestEnv()
	env.orders.getErr = order.ErrNotFound

	rec := env.do(t, http.MethodGet, "/api/orders/nope?user_id=usr-1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// --- API key middleware ---

type stubAPIKeys struct {
	info *auth.APIKeyInfo
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if s.info != nil && s.info.KeyHash == hash {
		return s.info, nil
	}
	return nil, auth.ErrNotFound
}

func TestRequireAPIKey(t *testing.T) {
	keys := &stubAPIKeys{}
	sec := NewSecurityHandler(keys, []byte("pepper"))
	keys.info = &auth.APIKeyInfo{ID: "key-1", KeyHash: sec.HashKey("valid-key")}

	var reached bool
	protected := sec.RequireAPIKey(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		reached = true
	}))

	t.Run("missing key", func(t *testing.T) {
		reached = false
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})

	t.Run("wrong key", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("api_key", "invalid")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})

	t.Run("valid key", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})
}
