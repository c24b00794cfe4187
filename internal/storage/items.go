package storage

import (
	"context"
	"database/sql"
	"fmt"

	"receipts/internal/core"
)

const itemColumns = `id, product_id, variant_id, price, quantity, date, transaction_id, shop_id`

func scanItem(row interface{ Scan(...any) error }) (core.Item, error) {
	var it core.Item
	var variant, tx, shop sql.NullInt64
	var date int64
	err := row.Scan(&it.ID, &it.ProductID, &variant, &it.Price.Cents, &it.Quantity.Milli, &date, &tx, &shop)
	if err != nil {
		return it, err
	}
	it.VariantID = ptrInt(variant)
	it.TransactionID = ptrInt(tx)
	it.ShopID = ptrInt(shop)
	it.Date = fromMillis(date)
	return it, nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id int64) (*core.Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, notFound(err))
	}
	return &it, nil
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]core.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY date, id`)
}

func (r *SQLiteRepository) ItemsOfTransaction(ctx context.Context, transactionID int64) ([]core.Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items WHERE transaction_id = ? ORDER BY id`, transactionID)
}

func (r *SQLiteRepository) queryItems(ctx context.Context, query string, args ...any) ([]core.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) ItemExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM items WHERE id = ?`, id)
}

func (r *SQLiteRepository) InsertItem(ctx context.Context, it core.Item) (int64, error) {
	id, err := r.insert(ctx, `
		INSERT INTO items (product_id, variant_id, price, quantity, date, transaction_id, shop_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ProductID, nullInt(it.VariantID), it.Price.Cents, it.Quantity.Milli,
		millis(it.Date), nullInt(it.TransactionID), nullInt(it.ShopID))
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateItem(ctx context.Context, it core.Item) error {
	err := r.update(ctx, `
		UPDATE items
		SET product_id = ?, variant_id = ?, price = ?, quantity = ?, date = ?, transaction_id = ?, shop_id = ?
		WHERE id = ?`,
		it.ProductID, nullInt(it.VariantID), it.Price.Cents, it.Quantity.Milli,
		millis(it.Date), nullInt(it.TransactionID), nullInt(it.ShopID), it.ID)
	if err != nil {
		return fmt.Errorf("update item %d: %w", it.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	return nil
}

// ItemRecord is an item joined with the names of everything it references.
// Names of absent references are empty.
type ItemRecord struct {
	core.Item
	ProductName  string
	CategoryName string
	VariantName  string
	ProducerName string
	ShopName     string
}

const itemRecordQuery = `
	SELECT i.id, i.product_id, i.variant_id, i.price, i.quantity, i.date, i.transaction_id, i.shop_id,
	       p.name, c.name, COALESCE(v.name, ''), COALESCE(pr.name, ''), COALESCE(s.name, '')
	FROM items i
	JOIN products p ON p.id = i.product_id
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN variants v ON v.id = i.variant_id
	LEFT JOIN producers pr ON pr.id = p.producer_id
	LEFT JOIN shops s ON s.id = i.shop_id`

// ItemRecords returns every item with its names, oldest first.
func (r *SQLiteRepository) ItemRecords(ctx context.Context) ([]ItemRecord, error) {
	return r.queryItemRecords(ctx, itemRecordQuery+` ORDER BY i.date, i.id`)
}

func (r *SQLiteRepository) queryItemRecords(ctx context.Context, query string, args ...any) ([]ItemRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query item records: %w", err)
	}
	defer rows.Close()

	var records []ItemRecord
	for rows.Next() {
		var rec ItemRecord
		var variant, tx, shop sql.NullInt64
		var date int64
		err := rows.Scan(&rec.ID, &rec.ProductID, &variant, &rec.Price.Cents, &rec.Quantity.Milli, &date, &tx, &shop,
			&rec.ProductName, &rec.CategoryName, &rec.VariantName, &rec.ProducerName, &rec.ShopName)
		if err != nil {
			return nil, fmt.Errorf("scan item record: %w", err)
		}
		rec.VariantID = ptrInt(variant)
		rec.TransactionID = ptrInt(tx)
		rec.ShopID = ptrInt(shop)
		rec.Date = fromMillis(date)
		records = append(records, rec)
	}
	return records, rows.Err()
}
