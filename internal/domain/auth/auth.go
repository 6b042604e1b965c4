// Package auth defines API key authentication types.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no active API key matches a hash.
var ErrNotFound = errors.New("api key not found")

// APIKeyInfo describes an issued API key. Only the HMAC-SHA256 hash of the
// key material is ever stored.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
}

// Repository provides API key lookups.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
