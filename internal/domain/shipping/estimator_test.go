package shipping

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRateClient struct {
	rates     []Option
	err       error
	lastQuery Query
}

func (m *mockRateClient) GetRates(_ context.Context, q Query) ([]Option, error) {
	m.lastQuery = q
	return m.rates, m.err
}

func testConfig() Config {
	return Config{
		OriginPostalCode:    "01310-100",
		DefaultLeadTimeDays: 7,
		FallbackTiers: []Tier{
			{
				Carrier: "parfum-shop", Service: "economy",
				Base:  decimal.RequireFromString("19.90"),
				PerKg: decimal.RequireFromString("4.50"),
				ValueRate:    decimal.RequireFromString("0.01"),
				LeadTimeDays: 9,
			},
			{
				Carrier: "parfum-shop", Service: "express",
				Base:  decimal.RequireFromString("39.90"),
				PerKg: decimal.RequireFromString("7.50"),
				ValueRate:    decimal.RequireFromString("0.015"),
				LeadTimeDays: 3,
			},
		},
		DefaultOption: Option{
			Carrier: "parfum-shop", Service: "flat-rate",
			Price:        decimal.RequireFromString("24.90"),
			LeadTimeDays: 10,
		},
	}
}

func testItems() []Item {
	return []Item{
		{
			VariantID: "pv-1", Quantity: 2, WeightKg: 0.5,
			WidthCm: 10, HeightCm: 15, LengthCm: 8,
			DeclaredValue: decimal.RequireFromString("100.00"),
		},
		{
			VariantID: "pv-2", Quantity: 1, WeightKg: 1.0,
			WidthCm: 12, HeightCm: 9, LengthCm: 20,
			DeclaredValue: decimal.RequireFromString("50.00"),
		},
	}
}

func TestEstimate_AggregatesPackage(t *testing.T) {
	client := &mockRateClient{rates: []Option{
		{Carrier: "correio", Service: "standard", Price: decimal.NewFromInt(20), LeadTimeDays: 5},
	}}
	e := NewEstimator(client, testConfig())

	e.Estimate(context.Background(), "04538-133", testItems())

	q := client.lastQuery
	assert.Equal(t, "01310-100", q.OriginPostalCode)
	assert.Equal(t, "04538-133", q.DestPostalCode)
	assert.InDelta(t, 2.0, q.WeightKg, 1e-9) // 2*0.5 + 1*1.0
	// Element-wise max across items, not a sum.
	assert.InDelta(t, 12.0, q.WidthCm, 1e-9)
	assert.InDelta(t, 15.0, q.HeightCm, 1e-9)
	assert.InDelta(t, 20.0, q.LengthCm, 1e-9)
	assert.True(t, decimal.RequireFromString("250.00").Equal(q.DeclaredValue))
}

func TestEstimate_SortedAscendingByPrice(t *testing.T) {
	client := &mockRateClient{rates: []Option{
		{Carrier: "a", Service: "fast", Price: decimal.NewFromInt(40), LeadTimeDays: 2},
		{Carrier: "b", Service: "slow", Price: decimal.NewFromInt(18), LeadTimeDays: 9},
		{Carrier: "c", Service: "mid", Price: decimal.NewFromInt(25), LeadTimeDays: 5},
	}}
	e := NewEstimator(client, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())

	require.Len(t, options, 3)
	assert.Equal(t, "slow", options[0].Service)
	assert.Equal(t, "mid", options[1].Service)
	assert.Equal(t, "fast", options[2].Service)
}

func TestEstimate_TiesKeepDiscoveryOrder(t *testing.T) {
	client := &mockRateClient{rates: []Option{
		{Carrier: "a", Service: "first", Price: decimal.NewFromInt(20)},
		{Carrier: "b", Service: "second", Price: decimal.NewFromInt(20)},
	}}
	e := NewEstimator(client, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())

	require.Len(t, options, 2)
	assert.Equal(t, "first", options[0].Service)
	assert.Equal(t, "second", options[1].Service)
}

func TestEstimate_CarrierFailureFallsBack(t *testing.T) {
	client := &mockRateClient{err: errors.New("connection timed out")}
	e := NewEstimator(client, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())

	// Two synthetic tiers; weight 2kg, declared value 250.00.
	// economy: 19.90 + 4.50*2 + 0.01*250 = 31.40
	// express: 39.90 + 7.50*2 + 0.015*250 = 58.65
	require.Len(t, options, 2)
	assert.Equal(t, "economy", options[0].Service)
	assert.True(t, decimal.RequireFromString("31.40").Equal(options[0].Price),
		"got %s", options[0].Price)
	assert.Equal(t, "express", options[1].Service)
	assert.True(t, decimal.RequireFromString("58.65").Equal(options[1].Price),
		"got %s", options[1].Price)
}

func TestEstimate_EmptyCarrierResultFallsBack(t *testing.T) {
	client := &mockRateClient{rates: nil}
	e := NewEstimator(client, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())
	require.Len(t, options, 2)
	assert.Equal(t, "economy", options[0].Service)
}

func TestEstimate_NegativePricedEntriesExcluded(t *testing.T) {
	client := &mockRateClient{rates: []Option{
		{Carrier: "a", Service: "broken", Price: decimal.NewFromInt(-1)},
		{Carrier: "b", Service: "ok", Price: decimal.NewFromInt(22)},
	}}
	e := NewEstimator(client, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())
	require.Len(t, options, 1)
	assert.Equal(t, "ok", options[0].Service)
}

func TestEstimate_FreeShippingThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.FreeShippingThreshold = decimal.RequireFromString("200.00")

	client := &mockRateClient{rates: []Option{
		{Carrier: "correio", Service: "standard", Price: decimal.NewFromInt(20), LeadTimeDays: 5},
	}}
	e := NewEstimator(client, cfg)

	// Declared value 250.00 >= threshold 200.00.
	options := e.Estimate(context.Background(), "04538-133", testItems())

	require.NotEmpty(t, options)
	assert.True(t, options[0].Price.IsZero(), "cheapest option must be the free one")
	assert.Equal(t, "free-shipping", options[0].Service)
	assert.Equal(t, 7, options[0].LeadTimeDays)
}

func TestEstimate_BelowFreeShippingThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.FreeShippingThreshold = decimal.RequireFromString("300.00")

	client := &mockRateClient{rates: []Option{
		{Carrier: "correio", Service: "standard", Price: decimal.NewFromInt(20), LeadTimeDays: 5},
	}}
	e := NewEstimator(client, cfg)

	options := e.Estimate(context.Background(), "04538-133", testItems())

	require.Len(t, options, 1)
	assert.False(t, options[0].Price.IsZero())
}

func TestEstimate_TotalFailureReturnsDefault(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackTiers = nil

	e := NewEstimator(&mockRateClient{err: errors.New("down")}, cfg)

	options := e.Estimate(context.Background(), "04538-133", testItems())

	require.Len(t, options, 1)
	assert.Equal(t, "flat-rate", options[0].Service)
	assert.True(t, decimal.RequireFromString("24.90").Equal(options[0].Price))
}

func TestEstimate_NilClientUsesFallback(t *testing.T) {
	e := NewEstimator(nil, testConfig())

	options := e.Estimate(context.Background(), "04538-133", testItems())
	require.Len(t, options, 2)
}
