// Package catalog holds the read-only product catalog types used by the
// order workflow: purchasable variants and their stock rows.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested variant does not exist or is
// inactive.
var ErrNotFound = errors.New("variant not found")

// Dimensions is the package size of a single variant in centimeters.
type Dimensions struct {
	WidthCm  float64
	HeightCm float64
	LengthCm float64
}

// Variant is a purchasable SKU. The order workflow treats variants as
// immutable; only the catalog admin surface (out of scope here) mutates them.
type Variant struct {
	ID         string
	Name       string
	Brand      string
	Price      decimal.Decimal
	WeightKg   float64
	Dimensions Dimensions
	Active     bool
}

// Stock is the inventory row for one variant. reserved counts units promised
// to unconfirmed orders; Available is what can still be sold.
type Stock struct {
	VariantID string
	OnHand    int
	Reserved  int
}

// Available returns the sellable quantity: on-hand minus reserved.
func (s Stock) Available() int {
	return s.OnHand - s.Reserved
}

// VariantStock pairs a variant with its current stock row.
type VariantStock struct {
	Variant Variant
	Stock   Stock
}

// Repository provides catalog lookups.
type Repository interface {
	List(ctx context.Context) ([]Variant, error)
	GetByID(ctx context.Context, id string) (*Variant, error)
	// GetActiveWithStock returns variant+stock rows for the given ids,
	// restricted to active variants. The result may be smaller than the id
	// set; callers must treat a short result as "some items do not exist".
	GetActiveWithStock(ctx context.Context, ids []string) ([]VariantStock, error)
}
