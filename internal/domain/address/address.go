// Package address holds the shipping address book consulted during checkout.
package address

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when an address does not exist or does not belong
// to the requesting user.
var ErrNotFound = errors.New("address not found")

// Address is a stored shipping destination.
type Address struct {
	ID         string
	UserID     string
	Label      string
	PostalCode string
	Street     string
	Number     string
	City       string
	State      string
}

// Repository provides address lookups scoped to their owner.
type Repository interface {
	// GetForUser returns the address only when it belongs to userID;
	// otherwise it returns ErrNotFound.
	GetForUser(ctx context.Context, id, userID string) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
}
