package storage

import (
	"context"
	"fmt"

	"receipts/internal/core"
)

func (r *SQLiteRepository) GetVariant(ctx context.Context, id int64) (*core.Variant, error) {
	var v core.Variant
	err := r.db.QueryRowContext(ctx, `SELECT id, name, product_id FROM variants WHERE id = ?`, id).
		Scan(&v.ID, &v.Name, &v.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get variant %d: %w", id, notFound(err))
	}
	return &v, nil
}

// ListVariants returns the variants of productID, or every variant when
// productID is zero.
func (r *SQLiteRepository) ListVariants(ctx context.Context, productID int64) ([]core.Variant, error) {
	query := `SELECT id, name, product_id FROM variants ORDER BY name, id`
	var args []any
	if productID != 0 {
		query = `SELECT id, name, product_id FROM variants WHERE product_id = ? ORDER BY name, id`
		args = append(args, productID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []core.Variant
	for rows.Next() {
		var v core.Variant
		if err := rows.Scan(&v.ID, &v.Name, &v.ProductID); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *SQLiteRepository) InsertVariant(ctx context.Context, v core.Variant) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO variants (name, product_id) VALUES (?, ?)`, v.Name, v.ProductID)
	if err != nil {
		return 0, fmt.Errorf("insert variant: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateVariant(ctx context.Context, v core.Variant) error {
	if err := r.update(ctx, `UPDATE variants SET name = ?, product_id = ? WHERE id = ?`, v.Name, v.ProductID, v.ID); err != nil {
		return fmt.Errorf("update variant %d: %w", v.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) VariantDependents(ctx context.Context, id int64) (Dependents, error) {
	return variantDependents(ctx, r.db, id)
}

func variantDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	n, err := count(ctx, q, `SELECT COUNT(*) FROM items WHERE variant_id = ?`, id)
	if err != nil {
		return Dependents{}, fmt.Errorf("count variant items: %w", err)
	}
	return Dependents{Items: n}, nil
}

// DeleteVariant removes the variant; items recorded against it keep their
// product.
func (r *SQLiteRepository) DeleteVariant(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, variantDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`UPDATE items SET variant_id = NULL WHERE variant_id = ?`,
			`DELETE FROM variants WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete variant %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) VariantExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM variants WHERE id = ?`, id)
}
