package memory

import (
	"context"
	"testing"
	"time"

	"receipts/internal/core"
	"receipts/internal/sheets"
	"receipts/internal/storage"
)

func tx(id int64, products ...string) storage.TransactionDetails {
	d := storage.TransactionDetails{
		Transaction: core.Transaction{ID: id, Date: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), TotalCost: core.Money{Cents: 100}},
	}
	for i, p := range products {
		d.Items = append(d.Items, storage.ItemRecord{Item: core.Item{ID: int64(i + 1), Quantity: core.Units}, ProductName: p})
	}
	return d
}

func TestMemoryStoreWriteReplacesRows(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	ref, err := s.WriteTransaction(ctx, tx(2, "Milk", "Bread"))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	if _, err := s.WriteTransaction(ctx, tx(1, "Eggs")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.WriteTransaction(ctx, tx(2, "Tea")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	rows := s.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected header and two rows, got %v", rows)
	}
	if rows[0][0] != sheets.Header[0] {
		t.Fatalf("missing header: %v", rows[0])
	}
	if rows[1][0] != "1" || rows[2][6] != "Tea" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestMemoryStoreDeleteAndReplace(t *testing.T) {
	s := New(time.UTC)
	ctx := context.Background()

	_, _ = s.WriteTransaction(ctx, tx(1, "Milk"))
	_, _ = s.WriteTransaction(ctx, tx(2, "Eggs"))
	if err := s.DeleteTransaction(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ids := s.Transactions(); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected ids after delete: %v", ids)
	}

	if err := s.ReplaceAll(ctx, []storage.TransactionDetails{tx(5), tx(3, "Tea")}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if ids := s.Transactions(); len(ids) != 2 || ids[0] != 3 || ids[1] != 5 {
		t.Fatalf("unexpected ids after replace: %v", ids)
	}
}
