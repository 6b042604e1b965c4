package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lavandier/parfum-shop/internal/domain/catalog"
)

const (
	listVariantsSQL = `SELECT id, name, brand, price, weight_kg, width_cm, height_cm, length_cm, active
		FROM product_variants WHERE active = TRUE ORDER BY id`

	getVariantByIDSQL = `SELECT id, name, brand, price, weight_kg, width_cm, height_cm, length_cm, active
		FROM product_variants WHERE id = $1`

	upsertVariantSQL = `INSERT INTO product_variants
		(id, name, brand, price, weight_kg, width_cm, height_cm, length_cm, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			weight_kg = EXCLUDED.weight_kg,
			width_cm = EXCLUDED.width_cm,
			height_cm = EXCLUDED.height_cm,
			length_cm = EXCLUDED.length_cm,
			active = EXCLUDED.active`

	setStockSQL = `INSERT INTO stock_records (variant_id, on_hand_qty)
		VALUES ($1, $2)
		ON CONFLICT (variant_id) DO UPDATE SET on_hand_qty = EXCLUDED.on_hand_qty`

	getActiveWithStockSQL = `SELECT v.id, v.name, v.brand, v.price,
		v.weight_kg, v.width_cm, v.height_cm, v.length_cm, v.active,
		COALESCE(s.on_hand_qty, 0), COALESCE(s.reserved_qty, 0)
		FROM product_variants v
		LEFT JOIN stock_records s ON s.variant_id = v.id
		WHERE v.id = ANY($1) AND v.active = TRUE`
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// NewVariantRepository returns a VariantRepository that uses the given pool.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// List returns all active variants ordered by ID.
func (r *VariantRepository) List(ctx context.Context) ([]catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, listVariantsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	return pgx.CollectRows(rows, scanVariant)
}

// GetByID returns a single variant by its identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, getVariantByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// GetActiveWithStock returns active variants matching the given IDs together
// with their stock counters. Unknown and inactive IDs are simply absent from
// the result; detecting them is the caller's job.
func (r *VariantRepository) GetActiveWithStock(ctx context.Context, ids []string) ([]catalog.VariantStock, error) {
	rows, err := r.pool.Query(ctx, getActiveWithStockSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting variants with stock: %w", err)
	}
	return pgx.CollectRows(rows, scanVariantStock)
}

// Upsert inserts or updates a variant definition. Used by the seeding tool.
func (r *VariantRepository) Upsert(ctx context.Context, v *catalog.Variant) error {
	_, err := r.pool.Exec(ctx, upsertVariantSQL,
		v.ID, v.Name, v.Brand, v.Price,
		v.WeightKg, v.Dimensions.WidthCm, v.Dimensions.HeightCm, v.Dimensions.LengthCm,
		v.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting variant %q: %w", v.ID, err)
	}
	return nil
}

// SetStock sets a variant's on-hand quantity, preserving reservations.
func (r *VariantRepository) SetStock(ctx context.Context, variantID string, onHand int) error {
	_, err := r.pool.Exec(ctx, setStockSQL, variantID, onHand)
	if err != nil {
		return fmt.Errorf("setting stock for %q: %w", variantID, err)
	}
	return nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var (
		v     catalog.Variant
		price decimal.Decimal
	)
	err := row.Scan(
		&v.ID, &v.Name, &v.Brand, &price,
		&v.WeightKg, &v.Dimensions.WidthCm, &v.Dimensions.HeightCm, &v.Dimensions.LengthCm,
		&v.Active,
	)
	v.Price = price
	return v, err
}

func scanVariantStock(row pgx.CollectableRow) (catalog.VariantStock, error) {
	var (
		vs    catalog.VariantStock
		price decimal.Decimal
	)
	err := row.Scan(
		&vs.Variant.ID, &vs.Variant.Name, &vs.Variant.Brand, &price,
		&vs.Variant.WeightKg, &vs.Variant.Dimensions.WidthCm, &vs.Variant.Dimensions.HeightCm, &vs.Variant.Dimensions.LengthCm,
		&vs.Variant.Active,
		&vs.Stock.OnHand, &vs.Stock.Reserved,
	)
	vs.Stock.VariantID = vs.Variant.ID
	return vs, err
}
