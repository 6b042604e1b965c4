package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavandier/parfum-shop/internal/domain/payment"
)

const (
	createPaymentSQL = `INSERT INTO payments (order_id, preference_id, method, status, amount, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getPaymentByOrderSQL = `SELECT order_id, preference_id, method, status, amount, raw_response, created_at
		FROM payments WHERE order_id = $1`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create persists a payment record for an order.
func (r *PaymentRepository) Create(ctx context.Context, rec *payment.Record) error {
	var raw any
	if len(rec.RawResponse) > 0 {
		raw = rec.RawResponse
	}
	_, err := r.pool.Exec(ctx, createPaymentSQL,
		rec.OrderID, rec.PreferenceID, rec.Method, string(rec.Status), rec.Amount, raw, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating payment for order %q: %w", rec.OrderID, err)
	}
	return nil
}

// GetByOrderID returns the payment record for an order, or payment.ErrNotFound.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Record, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("getting payment for order %q: %w", orderID, err)
	}
	return &rec, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Record, error) {
	var (
		rec    payment.Record
		status string
	)
	err := row.Scan(
		&rec.OrderID, &rec.PreferenceID, &rec.Method, &status,
		&rec.Amount, &rec.RawResponse, &rec.CreatedAt,
	)
	rec.Status = payment.Status(status)
	return rec, err
}
