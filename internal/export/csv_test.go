package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/core"
	"receipts/internal/storage"
)

type staticSource struct {
	records []storage.ItemRecord
	err     error
}

func (s staticSource) ItemRecords(context.Context) ([]storage.ItemRecord, error) {
	return s.records, s.err
}

func TestWriteCSV(t *testing.T) {
	tx := int64(4)
	src := staticSource{records: []storage.ItemRecord{
		{
			Item: core.Item{
				ID: 1, Price: core.Money{Cents: 300}, Quantity: core.Quantity{Milli: 2000},
				Date: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), TransactionID: &tx,
			},
			ProductName: "Milk, whole", CategoryName: "Dairy", ShopName: "Corner",
		},
		{
			Item:        core.Item{ID: 2, Price: core.Money{Cents: 150}, Quantity: core.Units, Date: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)},
			ProductName: "Bread", CategoryName: "Bakery",
		},
	}}

	var buf bytes.Buffer
	summary, err := WriteCSV(context.Background(), &buf, src, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Items)
	assert.Equal(t, int64(buf.Len()), summary.Bytes)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"1", "2024-03-01T12:00:00Z", "Corner", "Dairy", "Milk, whole", "", "", "2.000", "3.00", "1.50", "4"}, rows[1])
	assert.Equal(t, "", rows[2][10])
}

func TestWriteCSVSourceError(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteCSV(context.Background(), &buf, staticSource{err: errors.New("db down")}, nil)
	assert.ErrorContains(t, err, "db down")
	assert.Zero(t, buf.Len())
}
