package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavandier/parfum-shop/internal/domain/address"
)

const (
	getAddressForUserSQL = `SELECT id, user_id, label, postal_code, street, number, city, state
		FROM addresses WHERE id = $1 AND user_id = $2`

	listAddressesByUserSQL = `SELECT id, user_id, label, postal_code, street, number, city, state
		FROM addresses WHERE user_id = $1 ORDER BY created_at`

	upsertAddressSQL = `INSERT INTO addresses (id, user_id, label, postal_code, street, number, city, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			postal_code = EXCLUDED.postal_code,
			street = EXCLUDED.street,
			number = EXCLUDED.number,
			city = EXCLUDED.city,
			state = EXCLUDED.state`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetForUser returns an address only when it belongs to the given user.
// Returns address.ErrNotFound otherwise, hiding other users' addresses.
func (r *AddressRepository) GetForUser(ctx context.Context, id, userID string) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressForUserSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %q: %w", id, err)
	}
	return &a, nil
}

// ListByUser returns the user's address book.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// Upsert inserts or updates an address. Used by the seeding tool.
func (r *AddressRepository) Upsert(ctx context.Context, a *address.Address) error {
	_, err := r.pool.Exec(ctx, upsertAddressSQL,
		a.ID, a.UserID, a.Label, a.PostalCode, a.Street, a.Number, a.City, a.State,
	)
	if err != nil {
		return fmt.Errorf("upserting address %q: %w", a.ID, err)
	}
	return nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Label, &a.PostalCode,
		&a.Street, &a.Number, &a.City, &a.State,
	)
	return a, err
}
