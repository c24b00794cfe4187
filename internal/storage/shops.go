package storage

import (
	"context"
	"fmt"

	"receipts/internal/core"
)

func (r *SQLiteRepository) GetShop(ctx context.Context, id int64) (*core.Shop, error) {
	var s core.Shop
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM shops WHERE id = ?`, id).Scan(&s.ID, &s.Name)
	if err != nil {
		return nil, fmt.Errorf("get shop %d: %w", id, notFound(err))
	}
	return &s, nil
}

func (r *SQLiteRepository) ListShops(ctx context.Context) ([]core.Shop, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM shops ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []core.Shop
	for rows.Next() {
		var s core.Shop
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, s)
	}
	return shops, rows.Err()
}

func (r *SQLiteRepository) ShopExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM shops WHERE id = ?`, id)
}

// ShopNameExists reports whether another shop (not excludeID) uses name.
func (r *SQLiteRepository) ShopNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM shops WHERE name = ? AND id != ?`, name, excludeID)
}

func (r *SQLiteRepository) InsertShop(ctx context.Context, s core.Shop) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO shops (name) VALUES (?)`, s.Name)
	if err != nil {
		return 0, fmt.Errorf("insert shop: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateShop(ctx context.Context, s core.Shop) error {
	if err := r.update(ctx, `UPDATE shops SET name = ? WHERE id = ?`, s.Name, s.ID); err != nil {
		return fmt.Errorf("update shop %d: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ShopDependents(ctx context.Context, id int64) (Dependents, error) {
	return shopDependents(ctx, r.db, id)
}

func shopDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	var d Dependents
	var err error
	if d.Items, err = count(ctx, q, `SELECT COUNT(*) FROM items WHERE shop_id = ?`, id); err != nil {
		return d, fmt.Errorf("count shop items: %w", err)
	}
	if d.Transactions, err = count(ctx, q, `SELECT COUNT(*) FROM transactions WHERE shop_id = ?`, id); err != nil {
		return d, fmt.Errorf("count shop transactions: %w", err)
	}
	return d, nil
}

// DeleteShop removes the shop and clears it from the items and
// transactions that reference it.
func (r *SQLiteRepository) DeleteShop(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, shopDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`UPDATE items SET shop_id = NULL WHERE shop_id = ?`,
			`UPDATE transactions SET shop_id = NULL WHERE shop_id = ?`,
			`DELETE FROM shops WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete shop %d: %w", id, err)
	}
	return nil
}

// MergeShops moves every reference from source to target and deletes
// source.
func (r *SQLiteRepository) MergeShops(ctx context.Context, sourceID, targetID int64) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := execAll(ctx, q, []any{targetID, sourceID},
			`UPDATE items SET shop_id = ? WHERE shop_id = ?`,
			`UPDATE transactions SET shop_id = ? WHERE shop_id = ?`,
		); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `DELETE FROM shops WHERE id = ?`, sourceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge shop %d into %d: %w", sourceID, targetID, err)
	}
	return nil
}
