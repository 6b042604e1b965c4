package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavandier/parfum-shop/internal/domain/cart"
)

const (
	listCartItemsSQL = `SELECT variant_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY variant_id`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, variant_id, quantity)
		VALUES ($1, $2, $3)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListByUser returns the user's cart lines ordered by variant.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(&l.VariantID, &l.Quantity)
		return l, err
	})
}

// Replace swaps the user's cart for the given lines in one transaction.
func (r *CartRepository) Replace(ctx context.Context, userID string, lines []cart.Line) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteCartItemsSQL, userID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}
		for _, line := range lines {
			if _, err := tx.Exec(ctx, insertCartItemSQL, userID, line.VariantID, line.Quantity); err != nil {
				return fmt.Errorf("inserting cart item %q: %w", line.VariantID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing cart for user %q: %w", userID, err)
	}
	return nil
}
