package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/domain/order"
)

const (
	lockStockSQL = `SELECT variant_id, on_hand_qty, reserved_qty
		FROM stock_records WHERE variant_id = ANY($1)
		ORDER BY variant_id FOR UPDATE`

	reserveStockSQL = `UPDATE stock_records SET reserved_qty = reserved_qty + $2
		WHERE variant_id = $1`

	releaseStockSQL = `UPDATE stock_records SET reserved_qty = reserved_qty - $2
		WHERE variant_id = $1`

	insertOrderSQL = `INSERT INTO orders (id, number, user_id, address_id, status,
		subtotal, shipping_cost, discount, total,
		payment_method, coupon_code,
		shipping_carrier, shipping_service, shipping_lead_time_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	consumeCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER($1)
		AND (usage_limit = 0 OR used_count < usage_limit)`

	getOrderForUserSQL = `SELECT id, number, user_id, address_id, status,
		subtotal, shipping_cost, discount, total,
		payment_method, coupon_code,
		shipping_carrier, shipping_service, shipping_lead_time_days,
		cancel_reason, cancelled_at, created_at
		FROM orders WHERE id = $1 AND user_id = $2`

	lockOrderSQL = `SELECT id, number, user_id, address_id, status,
		subtotal, shipping_cost, discount, total,
		payment_method, coupon_code,
		shipping_carrier, shipping_service, shipping_lead_time_days,
		cancel_reason, cancelled_at, created_at
		FROM orders WHERE id = $1 FOR UPDATE`

	getOrderItemsSQL = `SELECT variant_id, name, quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY variant_id`

	cancelOrderSQL = `UPDATE orders SET status = $2, cancel_reason = $3, cancelled_at = $4
		WHERE id = $1`

	cancelPaymentSQL = `UPDATE payments SET status = 'CANCELLED'
		WHERE order_id = $1 AND status = 'PENDING'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order atomically: stock rows are locked in variant-ID
// order, availability is re-checked under the locks, reservations and the
// coupon counter are incremented, and the user's cart is cleared. Any failure
// rolls the whole order back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.VariantID
	}
	// Deterministic lock order prevents deadlocks between concurrent
	// checkouts sharing variants.
	sort.Strings(ids)

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		available, err := lockStock(ctx, tx, ids)
		if err != nil {
			return err
		}

		var shortages []order.Shortage
		for _, item := range o.Items {
			avail, ok := available[item.VariantID]
			if !ok {
				avail = 0
			}
			if avail < item.Quantity {
				shortages = append(shortages, order.Shortage{
					VariantID: item.VariantID,
					Requested: item.Quantity,
					Available: avail,
				})
			}
		}
		if len(shortages) > 0 {
			sort.Slice(shortages, func(i, j int) bool {
				return shortages[i].VariantID < shortages[j].VariantID
			})
			return &order.InsufficientStockError{Shortages: shortages}
		}

		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.Number, o.UserID, o.AddressID, string(o.Status),
			o.Subtotal, o.Shipping, o.Discount, o.Total,
			o.PaymentMethod, o.CouponCode,
			o.ShippingCarrier, o.ShippingService, o.ShippingLeadTimeDays, o.CreatedAt,
		); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"order_items"},
			[]string{"order_id", "variant_id", "name", "quantity", "unit_price", "line_total"},
			pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
				item := o.Items[i]
				return []any{o.ID, item.VariantID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal}, nil
			}),
		); err != nil {
			return fmt.Errorf("inserting order items: %w", err)
		}

		for _, item := range o.Items {
			if _, err := tx.Exec(ctx, reserveStockSQL, item.VariantID, item.Quantity); err != nil {
				return fmt.Errorf("reserving stock for %q: %w", item.VariantID, err)
			}
		}

		if o.CouponCode != "" {
			tag, err := tx.Exec(ctx, consumeCouponSQL, o.CouponCode)
			if err != nil {
				return fmt.Errorf("consuming coupon %q: %w", o.CouponCode, err)
			}
			if tag.RowsAffected() == 0 {
				return coupon.ErrExhausted
			}
		}

		if _, err := tx.Exec(ctx, deleteCartItemsSQL, o.UserID); err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}

		return nil
	})
	if err != nil {
		var stockErr *order.InsufficientStockError
		if errors.As(err, &stockErr) || errors.Is(err, coupon.ErrExhausted) {
			return err
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func lockStock(ctx context.Context, tx pgx.Tx, ids []string) (map[string]int, error) {
	rows, err := tx.Query(ctx, lockStockSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking stock rows: %w", err)
	}
	defer rows.Close()

	available := make(map[string]int, len(ids))
	for rows.Next() {
		var (
			variantID        string
			onHand, reserved int
		)
		if err := rows.Scan(&variantID, &onHand, &reserved); err != nil {
			return nil, fmt.Errorf("scanning stock row: %w", err)
		}
		available[variantID] = onHand - reserved
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stock rows: %w", err)
	}
	return available, nil
}

// Cancel transitions an order to CANCELLED and releases its reservations.
// The order row is locked first so a concurrent cancel of the same order
// observes the CANCELLED status and fails instead of double-releasing.
func (r *OrderRepository) Cancel(ctx context.Context, req order.CancelRequest) (*order.Order, error) {
	var cancelled *order.Order

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockOrderSQL, req.OrderID)
		if err != nil {
			return fmt.Errorf("locking order: %w", err)
		}

		o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("locking order: %w", err)
		}
		// Ownership failure is indistinguishable from absence on purpose.
		if o.UserID != req.UserID {
			return order.ErrNotFound
		}
		if !o.Status.Cancellable() {
			return order.ErrNotCancellable
		}

		items, err := r.loadItems(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		o.Items = items

		for _, item := range items {
			if _, err := tx.Exec(ctx, releaseStockSQL, item.VariantID, item.Quantity); err != nil {
				return fmt.Errorf("releasing stock for %q: %w", item.VariantID, err)
			}
		}

		at := req.At
		if _, err := tx.Exec(ctx, cancelOrderSQL, o.ID, string(order.StatusCancelled), req.Reason, at); err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		if _, err := tx.Exec(ctx, cancelPaymentSQL, o.ID); err != nil {
			return fmt.Errorf("cancelling payment: %w", err)
		}

		o.Status = order.StatusCancelled
		o.CancelReason = req.Reason
		o.CancelledAt = &at
		cancelled = &o
		return nil
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, order.ErrNotCancellable) {
			return nil, err
		}
		return nil, fmt.Errorf("cancelling order %q: %w", req.OrderID, err)
	}
	return cancelled, nil
}

// GetForUser returns an order with its items, scoped to the owning user.
func (r *OrderRepository) GetForUser(ctx context.Context, id, userID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderForUserSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := r.loadItems(ctx, r.pool, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *OrderRepository) loadItems(ctx context.Context, q querier, orderID string) ([]order.Item, error) {
	rows, err := q.Query(ctx, getOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var item order.Item
		err := row.Scan(&item.VariantID, &item.Name, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		return item, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		status      string
		cancelledAt *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.AddressID, &status,
		&o.Subtotal, &o.Shipping, &o.Discount, &o.Total,
		&o.PaymentMethod, &o.CouponCode,
		&o.ShippingCarrier, &o.ShippingService, &o.ShippingLeadTimeDays,
		&o.CancelReason, &cancelledAt, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	o.CancelledAt = cancelledAt
	return o, err
}
