package shipping

import (
	"context"
	"sort"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tier is a locally computed fallback quote: base price plus linear terms in
// weight and declared value.
type Tier struct {
	Carrier      string
	Service      string
	Base         decimal.Decimal
	PerKg        decimal.Decimal
	ValueRate    decimal.Decimal // multiplied by declared value
	LeadTimeDays int
}

// Config holds the estimator's tunables. All values come from application
// configuration; nothing is read from the environment here.
type Config struct {
	OriginPostalCode string

	// FreeShippingThreshold enables a zero-cost option once the aggregate
	// declared value reaches it. Zero disables free shipping.
	FreeShippingThreshold decimal.Decimal
	// DefaultLeadTimeDays is the lead time advertised for the free option.
	DefaultLeadTimeDays int

	// FallbackTiers are quoted when the carrier lookup fails or returns
	// nothing. Conventionally a slow/cheap tier and a fast/expensive one.
	FallbackTiers []Tier

	// DefaultOption is the hard-coded last resort; returned alone when both
	// the carrier and the fallback produce nothing.
	DefaultOption Option
}

// Estimator produces delivery options for a destination and a set of items.
type Estimator struct {
	client RateClient
	cfg    Config
}

// NewEstimator creates an Estimator using the given carrier client and
// configuration.
func NewEstimator(client RateClient, cfg Config) *Estimator {
	return &Estimator{client: client, cfg: cfg}
}

// Estimate returns delivery options sorted ascending by price, ties kept in
// discovery order. It always returns at least one option: carrier failures
// fall back to synthetic tiers, and a total failure yields the configured
// default. Estimation never returns an error.
func (e *Estimator) Estimate(ctx context.Context, destPostalCode string, items []Item) []Option {
	q := e.aggregate(destPostalCode, items)

	options := e.carrierRates(ctx, q)
	if len(options) == 0 {
		options = e.fallbackRates(q)
	}

	// A qualifying cart gets a free option ahead of everything else.
	if e.cfg.FreeShippingThreshold.IsPositive() && q.DeclaredValue.GreaterThanOrEqual(e.cfg.FreeShippingThreshold) {
		free := Option{
			Carrier:      "parfum-shop",
			Service:      "free-shipping",
			Price:        decimal.Zero,
			LeadTimeDays: e.cfg.DefaultLeadTimeDays,
		}
		options = append([]Option{free}, options...)
	}

	if len(options) == 0 {
		return []Option{e.cfg.DefaultOption}
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Price.LessThan(options[j].Price)
	})

	return options
}

// aggregate collapses the items into one package: summed weight and declared
// value, element-wise maximum of each dimension. Not a packing algorithm.
func (e *Estimator) aggregate(destPostalCode string, items []Item) Query {
	q := Query{
		OriginPostalCode: e.cfg.OriginPostalCode,
		DestPostalCode:   destPostalCode,
		DeclaredValue:    decimal.Zero,
	}

	for _, item := range items {
		qty := float64(item.Quantity)
		q.WeightKg += item.WeightKg * qty
		q.WidthCm = max(q.WidthCm, item.WidthCm)
		q.HeightCm = max(q.HeightCm, item.HeightCm)
		q.LengthCm = max(q.LengthCm, item.LengthCm)

		line := item.DeclaredValue.Mul(decimal.NewFromInt(int64(item.Quantity)))
		q.DeclaredValue = q.DeclaredValue.Add(line)
	}

	return q
}

// carrierRates queries the carrier and filters out unusable entries. Any
// failure is logged and swallowed; the caller falls back to local tiers.
func (e *Estimator) carrierRates(ctx context.Context, q Query) []Option {
	if e.client == nil {
		return nil
	}

	rates, err := e.client.GetRates(ctx, q)
	if err != nil {
		zctx.From(ctx).Warn("carrier rate lookup failed, using fallback",
			zap.String("dest", q.DestPostalCode),
			zap.Error(err),
		)
		return nil
	}

	options := make([]Option, 0, len(rates))
	for _, r := range rates {
		if r.Price.IsNegative() {
			continue
		}
		options = append(options, r)
	}
	return options
}

// fallbackRates computes synthetic quotes from the configured tiers.
func (e *Estimator) fallbackRates(q Query) []Option {
	weight := decimal.NewFromFloat(q.WeightKg)

	options := make([]Option, 0, len(e.cfg.FallbackTiers))
	for _, t := range e.cfg.FallbackTiers {
		price := t.Base.
			Add(t.PerKg.Mul(weight)).
			Add(t.ValueRate.Mul(q.DeclaredValue)).
			Round(2)

		options = append(options, Option{
			Carrier:      t.Carrier,
			Service:      t.Service,
			Price:        price,
			LeadTimeDays: t.LeadTimeDays,
		})
	}
	return options
}
