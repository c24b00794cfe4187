package sheets

import (
	"context"
	"strconv"
	"time"

	"receipts/internal/storage"
)

// Ports for outbound adapters.
type (
	// TransactionWriter stores a transaction with its items, replacing any
	// rows previously written for the same transaction.
	TransactionWriter interface {
		WriteTransaction(ctx context.Context, t storage.TransactionDetails) (ref string, err error)
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// Replacer rewrites the whole export from scratch.
	Replacer interface {
		ReplaceAll(ctx context.Context, ts []storage.TransactionDetails) error
	}

	Sink interface {
		TransactionWriter
		TransactionDeleter
		Replacer
	}
)

// Header is the first row of an exported sheet.
var Header = []string{
	"Transaction", "Date", "Shop", "Total", "Note",
	"Item", "Product", "Variant", "Category", "Producer", "Quantity", "Price", "Unit price",
}

// DateLayout is how dates are written to the sheet.
const DateLayout = "2006-01-02"

// Rows renders one row per item. A transaction without items still gets one
// row so it shows up in the sheet. The first column is always the
// transaction id.
func Rows(t storage.TransactionDetails, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}
	note := ""
	if t.Note != nil {
		note = *t.Note
	}
	head := []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.In(loc).Format(DateLayout),
		t.ShopName,
		t.TotalCost.String(),
		note,
	}
	if len(t.Items) == 0 {
		return [][]string{append(head, make([]string, len(Header)-len(head))...)}
	}

	rows := make([][]string, 0, len(t.Items))
	for _, it := range t.Items {
		row := append(append([]string(nil), head...),
			strconv.FormatInt(it.ID, 10),
			it.ProductName,
			it.VariantName,
			it.CategoryName,
			it.ProducerName,
			it.Quantity.String(),
			it.Price.String(),
			it.UnitPrice().String(),
		)
		rows = append(rows, row)
	}
	return rows
}
