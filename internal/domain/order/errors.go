package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order validation and cancellation.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrNotFound       = errors.New("order not found")
	ErrNotCancellable = errors.New("order cannot be cancelled")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for variant %s", e.VariantID)
}

// ItemsNotFoundError indicates requested variants that do not exist or are
// inactive. No partial orders: one unknown variant aborts the whole attempt.
type ItemsNotFoundError struct {
	VariantIDs []string
}

func (e *ItemsNotFoundError) Error() string {
	return fmt.Sprintf("items not found: %s", strings.Join(e.VariantIDs, ", "))
}

// Shortage reports requested versus available quantity for one variant.
type Shortage struct {
	VariantID string `json:"variant_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError lists every line whose available-to-sell quantity
// is below the requested quantity, not just the first.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", s.VariantID, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
