// Package shipping computes delivery options for a cart. It aggregates the
// cart into a single package, asks the carrier for rates, and falls back to
// locally computed quotes so that shipping estimation never blocks checkout.
package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is one shipment line: the physical attributes of a variant times its
// quantity.
type Item struct {
	VariantID     string
	Quantity      int
	WeightKg      float64
	WidthCm       float64
	HeightCm      float64
	LengthCm      float64
	DeclaredValue decimal.Decimal // unit price
}

// Option is a single delivery choice offered to the buyer.
type Option struct {
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	LeadTimeDays int             `json:"lead_time_days"`
}

// Query is the aggregate package sent to the carrier rate lookup.
type Query struct {
	OriginPostalCode string
	DestPostalCode   string
	WeightKg         float64
	WidthCm          float64
	HeightCm         float64
	LengthCm         float64
	DeclaredValue    decimal.Decimal
}

// RateClient looks up carrier rates for an aggregate package. Entries the
// carrier marks as errored must already be excluded from the result.
type RateClient interface {
	GetRates(ctx context.Context, q Query) ([]Option, error)
}
