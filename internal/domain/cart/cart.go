// Package cart holds the per-user shopping cart. Cart lines are replaced
// wholesale by the storefront and cleared atomically when an order is placed.
package cart

import "context"

// Line is a single cart entry.
type Line struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Repository provides cart persistence. Clearing on checkout happens inside
// the order transaction, not through this interface.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Line, error)
	Replace(ctx context.Context, userID string, lines []Line) error
}
