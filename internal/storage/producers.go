package storage

import (
	"context"
	"fmt"

	"receipts/internal/core"
)

func (r *SQLiteRepository) GetProducer(ctx context.Context, id int64) (*core.Producer, error) {
	var p core.Producer
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM producers WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, fmt.Errorf("get producer %d: %w", id, notFound(err))
	}
	return &p, nil
}

func (r *SQLiteRepository) ListProducers(ctx context.Context) ([]core.Producer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM producers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list producers: %w", err)
	}
	defer rows.Close()

	var producers []core.Producer
	for rows.Next() {
		var p core.Producer
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan producer: %w", err)
		}
		producers = append(producers, p)
	}
	return producers, rows.Err()
}

func (r *SQLiteRepository) ProducerExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM producers WHERE id = ?`, id)
}

func (r *SQLiteRepository) ProducerNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM producers WHERE name = ? AND id != ?`, name, excludeID)
}

func (r *SQLiteRepository) InsertProducer(ctx context.Context, p core.Producer) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO producers (name) VALUES (?)`, p.Name)
	if err != nil {
		return 0, fmt.Errorf("insert producer: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateProducer(ctx context.Context, p core.Producer) error {
	if err := r.update(ctx, `UPDATE producers SET name = ? WHERE id = ?`, p.Name, p.ID); err != nil {
		return fmt.Errorf("update producer %d: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ProducerDependents(ctx context.Context, id int64) (Dependents, error) {
	return producerDependents(ctx, r.db, id)
}

func producerDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	n, err := count(ctx, q, `SELECT COUNT(*) FROM products WHERE producer_id = ?`, id)
	if err != nil {
		return Dependents{}, fmt.Errorf("count producer products: %w", err)
	}
	return Dependents{Products: n}, nil
}

// DeleteProducer removes the producer; its products keep existing without
// one.
func (r *SQLiteRepository) DeleteProducer(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, producerDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`UPDATE products SET producer_id = NULL WHERE producer_id = ?`,
			`DELETE FROM producers WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete producer %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MergeProducers(ctx context.Context, sourceID, targetID int64) error {
	err := r.withTx(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, `UPDATE products SET producer_id = ? WHERE producer_id = ?`, targetID, sourceID); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `DELETE FROM producers WHERE id = ?`, sourceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge producer %d into %d: %w", sourceID, targetID, err)
	}
	return nil
}
