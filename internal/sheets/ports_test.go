package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/core"
	"receipts/internal/storage"
)

func TestRows(t *testing.T) {
	note := "weekly shop"
	tx := storage.TransactionDetails{
		Transaction: core.Transaction{
			ID:        7,
			Date:      time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC),
			TotalCost: core.Money{Cents: 450},
			Note:      &note,
		},
		ShopName: "Corner",
		Items: []storage.ItemRecord{
			{
				Item:         core.Item{ID: 1, Price: core.Money{Cents: 300}, Quantity: core.Quantity{Milli: 2000}},
				ProductName:  "Milk",
				VariantName:  "Skimmed",
				CategoryName: "Dairy",
				ProducerName: "Farm",
			},
			{
				Item:         core.Item{ID: 2, Price: core.Money{Cents: 150}, Quantity: core.Units},
				ProductName:  "Bread",
				CategoryName: "Bakery",
			},
		},
	}

	rows := Rows(tx, time.UTC)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"7", "2024-03-01", "Corner", "4.50", "weekly shop", "1", "Milk", "Skimmed", "Dairy", "Farm", "2.000", "3.00", "1.50"}, rows[0])
	assert.Equal(t, "Bread", rows[1][6])
	assert.Len(t, rows[1], len(Header))

	cet := time.FixedZone("CET", 3600)
	assert.Equal(t, "2024-03-02", Rows(tx, cet)[0][1])
}

func TestRowsWithoutItems(t *testing.T) {
	tx := storage.TransactionDetails{
		Transaction: core.Transaction{ID: 3, Date: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), TotalCost: core.Money{Cents: 99}},
	}

	rows := Rows(tx, nil)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(Header))
	assert.Equal(t, "3", rows[0][0])
	assert.Equal(t, "0.99", rows[0][3])
	assert.Equal(t, "", rows[0][5])
}
