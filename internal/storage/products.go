package storage

import (
	"context"
	"database/sql"
	"fmt"

	"receipts/internal/core"
)

const productColumns = `id, name, category_id, producer_id`

func scanProduct(row interface{ Scan(...any) error }) (core.Product, error) {
	var p core.Product
	var producer sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.CategoryID, &producer); err != nil {
		return p, err
	}
	p.ProducerID = ptrInt(producer)
	return p, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, notFound(err))
	}
	return &p, nil
}

func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

func (r *SQLiteRepository) ProductsInCategory(ctx context.Context, categoryID int64) ([]core.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE category_id = ? ORDER BY name, id`, categoryID)
}

func (r *SQLiteRepository) queryProducts(ctx context.Context, query string, args ...any) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *SQLiteRepository) ProductExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM products WHERE id = ?`, id)
}

// ProductNameExists checks uniqueness inside a category.
func (r *SQLiteRepository) ProductNameExists(ctx context.Context, name string, categoryID, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM products WHERE name = ? AND category_id = ? AND id != ?`, name, categoryID, excludeID)
}

func (r *SQLiteRepository) InsertProduct(ctx context.Context, p core.Product) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO products (name, category_id, producer_id) VALUES (?, ?, ?)`,
		p.Name, p.CategoryID, nullInt(p.ProducerID))
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) error {
	err := r.update(ctx, `UPDATE products SET name = ?, category_id = ?, producer_id = ? WHERE id = ?`,
		p.Name, p.CategoryID, nullInt(p.ProducerID), p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ProductDependents(ctx context.Context, id int64) (Dependents, error) {
	return productDependents(ctx, r.db, id)
}

func productDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	var d Dependents
	var err error
	if d.Items, err = count(ctx, q, `SELECT COUNT(*) FROM items WHERE product_id = ?`, id); err != nil {
		return d, fmt.Errorf("count product items: %w", err)
	}
	if d.Variants, err = count(ctx, q, `SELECT COUNT(*) FROM variants WHERE product_id = ?`, id); err != nil {
		return d, fmt.Errorf("count product variants: %w", err)
	}
	return d, nil
}

// DeleteProduct removes the product with its items and variants.
func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, productDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`DELETE FROM items WHERE product_id = ?`,
			`DELETE FROM variants WHERE product_id = ?`,
			`DELETE FROM products WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// MergeProducts moves the items and variants of source to target and
// deletes source.
func (r *SQLiteRepository) MergeProducts(ctx context.Context, sourceID, targetID int64) error {
	err := r.withTx(ctx, func(q querier) error {
		return mergeProducts(ctx, q, sourceID, targetID)
	})
	if err != nil {
		return fmt.Errorf("merge product %d into %d: %w", sourceID, targetID, err)
	}
	return nil
}

func mergeProducts(ctx context.Context, q querier, sourceID, targetID int64) error {
	if err := execAll(ctx, q, []any{targetID, sourceID},
		`UPDATE items SET product_id = ? WHERE product_id = ?`,
		`UPDATE variants SET product_id = ? WHERE product_id = ?`,
	); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, sourceID)
	return err
}
