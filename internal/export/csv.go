// Package export writes item records out of the database.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"receipts/internal/storage"
)

// ItemSource provides the records to export.
type ItemSource interface {
	ItemRecords(ctx context.Context) ([]storage.ItemRecord, error)
}

// Columns is the CSV header.
var Columns = []string{
	"id", "date", "shop", "category", "product", "variant", "producer",
	"quantity", "price", "unit_price", "transaction_id",
}

// Summary describes a finished export.
type Summary struct {
	Items int
	Bytes int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteCSV writes every item record, oldest first, with dates rendered in loc.
func WriteCSV(ctx context.Context, w io.Writer, src ItemSource, loc *time.Location) (Summary, error) {
	if loc == nil {
		loc = time.UTC
	}
	records, err := src.ItemRecords(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load item records: %w", err)
	}

	cw := &countingWriter{w: w}
	out := csv.NewWriter(cw)
	if err := out.Write(Columns); err != nil {
		return Summary{}, err
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		if err := out.Write(recordRow(rec, loc)); err != nil {
			return Summary{}, err
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return Summary{}, fmt.Errorf("write csv: %w", err)
	}
	return Summary{Items: len(records), Bytes: cw.n}, nil
}

func recordRow(rec storage.ItemRecord, loc *time.Location) []string {
	tx := ""
	if rec.TransactionID != nil {
		tx = strconv.FormatInt(*rec.TransactionID, 10)
	}
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.Date.In(loc).Format(time.RFC3339),
		rec.ShopName,
		rec.CategoryName,
		rec.ProductName,
		rec.VariantName,
		rec.ProducerName,
		rec.Quantity.String(),
		rec.Price.String(),
		rec.UnitPrice().String(),
		tx,
	}
}
