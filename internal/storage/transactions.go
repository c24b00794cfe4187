package storage

import (
	"context"
	"database/sql"
	"fmt"

	"receipts/internal/core"
)

const transactionColumns = `id, date, total_cost, shop_id, note`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var date int64
	var shop sql.NullInt64
	var note sql.NullString
	if err := row.Scan(&t.ID, &date, &t.TotalCost.Cents, &shop, &note); err != nil {
		return t, err
	}
	t.Date = fromMillis(date)
	t.ShopID = ptrInt(shop)
	t.Note = ptrString(note)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, notFound(err))
	}
	return &t, nil
}

// ListTransactions returns transactions newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *SQLiteRepository) TransactionExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT 1 FROM transactions WHERE id = ?`, id)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	id, err := r.insert(ctx, `INSERT INTO transactions (date, total_cost, shop_id, note) VALUES (?, ?, ?, ?)`,
		millis(t.Date), t.TotalCost.Cents, nullInt(t.ShopID), nullString(t.Note))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction rewrites the transaction and moves its items to the
// transaction's shop and date.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	err := r.withTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `UPDATE transactions SET date = ?, total_cost = ?, shop_id = ?, note = ? WHERE id = ?`,
			millis(t.Date), t.TotalCost.Cents, nullInt(t.ShopID), nullString(t.Note), t.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		_, err = q.ExecContext(ctx, `UPDATE items SET shop_id = ?, date = ? WHERE transaction_id = ?`,
			nullInt(t.ShopID), millis(t.Date), t.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) TransactionDependents(ctx context.Context, id int64) (Dependents, error) {
	return transactionDependents(ctx, r.db, id)
}

func transactionDependents(ctx context.Context, q querier, id int64) (Dependents, error) {
	n, err := count(ctx, q, `SELECT COUNT(*) FROM items WHERE transaction_id = ?`, id)
	if err != nil {
		return Dependents{}, fmt.Errorf("count transaction items: %w", err)
	}
	return Dependents{Items: n}, nil
}

// DeleteTransaction removes the transaction and its items.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64, confirmed bool) error {
	err := r.withTx(ctx, func(q querier) error {
		if err := guard(ctx, q, id, confirmed, transactionDependents); err != nil {
			return err
		}
		return execAll(ctx, q, []any{id},
			`DELETE FROM items WHERE transaction_id = ?`,
			`DELETE FROM transactions WHERE id = ?`,
		)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

// TransactionDetails is a transaction with its shop name and item lines.
type TransactionDetails struct {
	core.Transaction
	ShopName string
	Items    []ItemRecord
}

func (r *SQLiteRepository) TransactionDetails(ctx context.Context, id int64) (*TransactionDetails, error) {
	t, err := r.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &TransactionDetails{Transaction: *t}
	if t.ShopID != nil {
		shop, err := r.GetShop(ctx, *t.ShopID)
		if err != nil {
			return nil, err
		}
		d.ShopName = shop.Name
	}
	d.Items, err = r.queryItemRecords(ctx, itemRecordQuery+` WHERE i.transaction_id = ? ORDER BY i.id`, id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// AllTransactionDetails returns every transaction with its items, newest first.
func (r *SQLiteRepository) AllTransactionDetails(ctx context.Context) ([]TransactionDetails, error) {
	ts, err := r.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	shops, err := r.ListShops(ctx)
	if err != nil {
		return nil, err
	}
	shopNames := make(map[int64]string, len(shops))
	for _, s := range shops {
		shopNames[s.ID] = s.Name
	}
	records, err := r.queryItemRecords(ctx, itemRecordQuery+` WHERE i.transaction_id IS NOT NULL ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	byTransaction := make(map[int64][]ItemRecord)
	for _, rec := range records {
		byTransaction[*rec.TransactionID] = append(byTransaction[*rec.TransactionID], rec)
	}

	out := make([]TransactionDetails, 0, len(ts))
	for _, t := range ts {
		d := TransactionDetails{Transaction: t, Items: byTransaction[t.ID]}
		if t.ShopID != nil {
			d.ShopName = shopNames[*t.ShopID]
		}
		out = append(out, d)
	}
	return out, nil
}
