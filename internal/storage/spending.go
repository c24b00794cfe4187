package storage

import (
	"context"
	"database/sql"
	"fmt"

	"receipts/internal/core"
)

// itemFilter returns the WHERE clause selecting the items of dim.
func itemFilter(dim core.Dimension) (string, []any, error) {
	switch dim.Kind {
	case core.AllSpending:
		return "", nil, nil
	case core.ByShop:
		return ` WHERE i.shop_id = ?`, []any{dim.ID}, nil
	case core.ByProduct:
		return ` WHERE i.product_id = ?`, []any{dim.ID}, nil
	case core.ByVariant:
		return ` WHERE i.variant_id = ?`, []any{dim.ID}, nil
	case core.ByCategory:
		return ` WHERE i.product_id IN (SELECT id FROM products WHERE category_id = ?)`, []any{dim.ID}, nil
	case core.ByProducer:
		return ` WHERE i.product_id IN (SELECT id FROM products WHERE producer_id = ?)`, []any{dim.ID}, nil
	default:
		return "", nil, fmt.Errorf("unsupported dimension %s", dim)
	}
}

// SpendingRows returns the date and price of every item of dim, oldest
// first.
func (r *SQLiteRepository) SpendingRows(ctx context.Context, dim core.Dimension) ([]core.SpendingRow, error) {
	where, args, err := itemFilter(dim)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT i.date, i.price FROM items i`+where+` ORDER BY i.date, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query spending rows for %s: %w", dim, err)
	}
	defer rows.Close()

	var out []core.SpendingRow
	for rows.Next() {
		var date, price int64
		if err := rows.Scan(&date, &price); err != nil {
			return nil, fmt.Errorf("scan spending row: %w", err)
		}
		out = append(out, core.SpendingRow{Date: fromMillis(date), Amount: core.Money{Cents: price}})
	}
	return out, rows.Err()
}

// TotalSpent sums the price of every item of dim.
func (r *SQLiteRepository) TotalSpent(ctx context.Context, dim core.Dimension) (core.Money, error) {
	where, args, err := itemFilter(dim)
	if err != nil {
		return core.Money{}, err
	}
	total, err := count(ctx, r.db, `SELECT COALESCE(SUM(i.price), 0) FROM items i`+where, args...)
	if err != nil {
		return core.Money{}, fmt.Errorf("total spent for %s: %w", dim, err)
	}
	return core.Money{Cents: total}, nil
}

var totalsQueries = map[core.DimensionKind]string{
	core.ByShop: `
		SELECT s.id, s.name, SUM(i.price) FROM items i
		JOIN shops s ON s.id = i.shop_id
		GROUP BY s.id, s.name`,
	core.ByProduct: `
		SELECT p.id, p.name, SUM(i.price) FROM items i
		JOIN products p ON p.id = i.product_id
		GROUP BY p.id, p.name`,
	core.ByVariant: `
		SELECT v.id, v.name, SUM(i.price) FROM items i
		JOIN variants v ON v.id = i.variant_id
		GROUP BY v.id, v.name`,
	core.ByCategory: `
		SELECT c.id, c.name, SUM(i.price) FROM items i
		JOIN products p ON p.id = i.product_id
		JOIN categories c ON c.id = p.category_id
		GROUP BY c.id, c.name`,
	core.ByProducer: `
		SELECT pr.id, pr.name, SUM(i.price) FROM items i
		JOIN products p ON p.id = i.product_id
		JOIN producers pr ON pr.id = p.producer_id
		GROUP BY pr.id, pr.name`,
}

// TotalsBy returns the spending per entity of kind, largest first. Items
// without such an entity are left out.
func (r *SQLiteRepository) TotalsBy(ctx context.Context, kind core.DimensionKind) ([]core.EntityTotal, error) {
	query, ok := totalsQueries[kind]
	if !ok {
		return nil, fmt.Errorf("totals by %s are not supported", kind)
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY 3 DESC, 2`)
	if err != nil {
		return nil, fmt.Errorf("totals by %s: %w", kind, err)
	}
	defer rows.Close()

	var out []core.EntityTotal
	for rows.Next() {
		var t core.EntityTotal
		if err := rows.Scan(&t.ID, &t.Name, &t.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PriceHistory lists every purchase of a product, oldest first.
func (r *SQLiteRepository) PriceHistory(ctx context.Context, productID int64) ([]core.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.date, i.shop_id, COALESCE(s.name, ''), i.price, i.quantity
		FROM items i
		LEFT JOIN shops s ON s.id = i.shop_id
		WHERE i.product_id = ?
		ORDER BY i.date, i.id`, productID)
	if err != nil {
		return nil, fmt.Errorf("price history of product %d: %w", productID, err)
	}
	defer rows.Close()

	var out []core.PricePoint
	for rows.Next() {
		var p core.PricePoint
		var date int64
		var shop sql.NullInt64
		if err := rows.Scan(&p.ItemID, &date, &shop, &p.ShopName, &p.Price.Cents, &p.Quantity.Milli); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Date = fromMillis(date)
		p.ShopID = ptrInt(shop)
		p.UnitPrice = p.Price.PerUnit(p.Quantity)
		out = append(out, p)
	}
	return out, rows.Err()
}
