package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"receipts/internal/core"
)

func encodeNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("encode alternate names: %w", err)
	}
	return string(b), nil
}

func decodeNames(raw string) ([]string, error) {
	var names []string
	if raw == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode alternate names: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var alt string
	if err := row.Scan(&c.ID, &c.Name, &alt); err != nil {
		return c, err
	}
	names, err := decodeNames(alt)
	if err != nil {
		return c, err
	}
	c.AlternateNames = names
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `SELECT id, name, alternate_names FROM categories WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, notFound(err))
	}
	return &c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, alternate_names FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM categories WHERE id = ?`, id)
}

func (r *SQLiteRepository) CategoryNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM categories WHERE name = ? AND id != ?`, name, excludeID)
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (int64, error) {
	alt, err := encodeNames(c.AlternateNames)
	if err != nil {
		return 0, err
	}
	id, err := r.insert(ctx, `INSERT INTO categories (name, alternate_names) VALUES (?, ?)`, c.Name, alt)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	alt, err := encodeNames(c.AlternateNames)
	if err != nil {
		return err
	}
	if err := r.update(ctx, `UPDATE categories SET name = ?, alternate_names = ? WHERE id = ?`, c.Name, alt, c.ID); err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) CategoryDependents(ctx context.Context, id int64) (Dependents, error) {
	return categoryDependents(ctx, r.db, id)
}

func categoryDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	n, err := count(ctx, q, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id)
	if err != nil {
		return Dependents{}, fmt.Errorf("count category products: %w", err)
	}
	return Dependents{Products: n}, nil
}

// DeleteCategory removes the category together with its products and
// everything recorded against them.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, categoryDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`DELETE FROM items WHERE product_id IN (SELECT id FROM products WHERE category_id = ?)`,
			`DELETE FROM variants WHERE product_id IN (SELECT id FROM products WHERE category_id = ?)`,
			`DELETE FROM products WHERE category_id = ?`,
			`DELETE FROM categories WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// MergeCategories moves the products of source into target. A source
// product whose name already exists in target is folded into that product.
// The source name and its alternate names become alternate names of target.
func (r *SQLiteRepository) MergeCategories(ctx context.Context, sourceID, targetID int64) error {
	err := r.withTx(ctx, func(q querier) error {
		source, err := scanCategory(q.QueryRowContext(ctx, `SELECT id, name, alternate_names FROM categories WHERE id = ?`, sourceID))
		if err != nil {
			return notFound(err)
		}
		target, err := scanCategory(q.QueryRowContext(ctx, `SELECT id, name, alternate_names FROM categories WHERE id = ?`, targetID))
		if err != nil {
			return notFound(err)
		}

		clashes, err := productClashes(ctx, q, sourceID, targetID)
		if err != nil {
			return err
		}
		for from, into := range clashes {
			if err := mergeProducts(ctx, q, from, into); err != nil {
				return err
			}
		}

		if _, err := q.ExecContext(ctx, `UPDATE products SET category_id = ? WHERE category_id = ?`, targetID, sourceID); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, sourceID); err != nil {
			return err
		}

		alt, err := encodeNames(mergeNames(target, source))
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `UPDATE categories SET alternate_names = ? WHERE id = ?`, alt, targetID)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge category %d into %d: %w", sourceID, targetID, err)
	}
	return nil
}

// productClashes maps each source product id to the same-named product id
// in target.
func productClashes(ctx context.Context, q querier, sourceID, targetID int64) (map[int64]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, t.id
		FROM products s
		JOIN products t ON t.name = s.name AND t.category_id = ?
		WHERE s.category_id = ?`, targetID, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clashes := make(map[int64]int64)
	for rows.Next() {
		var from, into int64
		if err := rows.Scan(&from, &into); err != nil {
			return nil, err
		}
		clashes[from] = into
	}
	return clashes, rows.Err()
}

func mergeNames(target, source core.Category) []string {
	var names []string
	seen := map[string]bool{strings.ToLower(target.Name): true}
	add := func(n string) {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			return
		}
		seen[key] = true
		names = append(names, n)
	}
	for _, n := range target.AlternateNames {
		add(n)
	}
	add(source.Name)
	for _, n := range source.AlternateNames {
		add(n)
	}
	return names
}
