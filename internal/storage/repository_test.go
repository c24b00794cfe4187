package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	shop, otherShop  int64
	dairy, bakery    int64
	producer         int64
	milk, bread      int64
	skimmed          int64
	tx               int64
	milkItem, bread1 int64
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 12, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, repo *SQLiteRepository) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.shop, err = repo.InsertShop(ctx, core.Shop{Name: "Corner"})
	require.NoError(t, err)
	f.otherShop, err = repo.InsertShop(ctx, core.Shop{Name: "Mall"})
	require.NoError(t, err)
	f.dairy, err = repo.InsertCategory(ctx, core.Category{Name: "Dairy", AlternateNames: []string{"Latticini"}})
	require.NoError(t, err)
	f.bakery, err = repo.InsertCategory(ctx, core.Category{Name: "Bakery"})
	require.NoError(t, err)
	f.producer, err = repo.InsertProducer(ctx, core.Producer{Name: "Farm"})
	require.NoError(t, err)
	f.milk, err = repo.InsertProduct(ctx, core.Product{Name: "Milk", CategoryID: f.dairy, ProducerID: &f.producer})
	require.NoError(t, err)
	f.bread, err = repo.InsertProduct(ctx, core.Product{Name: "Bread", CategoryID: f.bakery})
	require.NoError(t, err)
	f.skimmed, err = repo.InsertVariant(ctx, core.Variant{Name: "Skimmed", ProductID: f.milk})
	require.NoError(t, err)
	f.tx, err = repo.InsertTransaction(ctx, core.Transaction{Date: day(1), TotalCost: core.Money{Cents: 450}, ShopID: &f.shop})
	require.NoError(t, err)
	f.milkItem, err = repo.InsertItem(ctx, core.Item{
		ProductID: f.milk, VariantID: &f.skimmed, Price: core.Money{Cents: 300}, Quantity: core.Quantity{Milli: 2000},
		Date: day(1), TransactionID: &f.tx, ShopID: &f.shop,
	})
	require.NoError(t, err)
	f.bread1, err = repo.InsertItem(ctx, core.Item{
		ProductID: f.bread, Price: core.Money{Cents: 150}, Quantity: core.Units, Date: day(1), TransactionID: &f.tx, ShopID: &f.shop,
	})
	require.NoError(t, err)
	return f
}

func TestSequentialIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.InsertTransaction(ctx, core.Transaction{Date: day(1), TotalCost: core.Money{Cents: 100}})
	require.NoError(t, err)
	second, err := repo.InsertTransaction(ctx, core.Transaction{Date: day(2), TotalCost: core.Money{Cents: 200}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestGetRoundTrips(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	cat, err := repo.GetCategory(ctx, f.dairy)
	require.NoError(t, err)
	assert.Equal(t, []string{"Latticini"}, cat.AlternateNames)

	bakery, err := repo.GetCategory(ctx, f.bakery)
	require.NoError(t, err)
	assert.Nil(t, bakery.AlternateNames)

	item, err := repo.GetItem(ctx, f.milkItem)
	require.NoError(t, err)
	assert.Equal(t, core.Money{Cents: 300}, item.Price)
	assert.Equal(t, core.Quantity{Milli: 2000}, item.Quantity)
	assert.True(t, item.Date.Equal(day(1)))
	assert.Equal(t, f.skimmed, *item.VariantID)

	note := "weekly"
	id, err := repo.InsertTransaction(ctx, core.Transaction{Date: day(3), TotalCost: core.Money{Cents: 1}, Note: &note})
	require.NoError(t, err)
	tx, err := repo.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "weekly", *tx.Note)
	assert.Nil(t, tx.ShopID)

	_, err = repo.GetShop(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdateShop(ctx, core.Shop{ID: 999, Name: "x"}), ErrNotFound)
}

func TestNameExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	found, err := repo.ShopNameExists(ctx, "Corner", 0)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ShopNameExists(ctx, "Corner", f.shop)
	require.NoError(t, err)
	assert.False(t, found, "a shop does not clash with itself")

	found, err = repo.ProductNameExists(ctx, "Milk", f.bakery, 0)
	require.NoError(t, err)
	assert.False(t, found, "product names are unique per category")
}

func TestDependents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	d, err := repo.ShopDependents(ctx, f.shop)
	require.NoError(t, err)
	assert.Equal(t, Dependents{Items: 2, Transactions: 1}, d)

	d, err = repo.ShopDependents(ctx, f.otherShop)
	require.NoError(t, err)
	assert.False(t, d.Any())

	d, err = repo.ProductDependents(ctx, f.milk)
	require.NoError(t, err)
	assert.Equal(t, Dependents{Items: 1, Variants: 1}, d)

	d, err = repo.CategoryDependents(ctx, f.dairy)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Products)

	d, err = repo.ProducerDependents(ctx, f.producer)
	require.NoError(t, err)
	assert.Equal(t, Dependents{Products: 1}, d)

	d, err = repo.VariantDependents(ctx, f.skimmed)
	require.NoError(t, err)
	assert.True(t, d.Any())

	d, err = repo.TransactionDependents(ctx, f.tx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Items)
}

func TestUnconfirmedDeleteKeepsDependents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	err := repo.DeleteShop(ctx, f.shop, false)
	assert.ErrorIs(t, err, ErrHasDependents)
	_, err = repo.GetShop(ctx, f.shop)
	require.NoError(t, err, "a refused delete leaves the shop in place")

	err = repo.DeleteTransaction(ctx, f.tx, false)
	assert.ErrorIs(t, err, ErrHasDependents)
	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, items)

	require.NoError(t, repo.DeleteShop(ctx, f.otherShop, false), "a shop nothing references needs no confirmation")
	_, err = repo.GetShop(ctx, f.otherShop)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteShopClearsReferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.DeleteShop(ctx, f.shop, true))

	item, err := repo.GetItem(ctx, f.milkItem)
	require.NoError(t, err)
	assert.Nil(t, item.ShopID)
	tx, err := repo.GetTransaction(ctx, f.tx)
	require.NoError(t, err)
	assert.Nil(t, tx.ShopID)
}

func TestDeleteCategoryCascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.DeleteCategory(ctx, f.dairy, true))

	_, err := repo.GetProduct(ctx, f.milk)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetVariant(ctx, f.skimmed)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetItem(ctx, f.milkItem)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetItem(ctx, f.bread1)
	assert.NoError(t, err)
}

func TestDeleteTransactionRemovesItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.DeleteTransaction(ctx, f.tx, true))
	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMergeShops(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.MergeShops(ctx, f.shop, f.otherShop))

	_, err := repo.GetShop(ctx, f.shop)
	assert.ErrorIs(t, err, ErrNotFound)
	item, err := repo.GetItem(ctx, f.milkItem)
	require.NoError(t, err)
	assert.Equal(t, f.otherShop, *item.ShopID)
	tx, err := repo.GetTransaction(ctx, f.tx)
	require.NoError(t, err)
	assert.Equal(t, f.otherShop, *tx.ShopID)
}

func TestMergeCategoriesFoldsSameNamedProducts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	// a second "Milk" in Bakery must fold into Dairy's Milk
	stray, err := repo.InsertProduct(ctx, core.Product{Name: "Milk", CategoryID: f.bakery})
	require.NoError(t, err)
	strayItem, err := repo.InsertItem(ctx, core.Item{ProductID: stray, Price: core.Money{Cents: 99}, Quantity: core.Units, Date: day(2)})
	require.NoError(t, err)

	require.NoError(t, repo.MergeCategories(ctx, f.bakery, f.dairy))

	_, err = repo.GetProduct(ctx, stray)
	assert.ErrorIs(t, err, ErrNotFound)
	item, err := repo.GetItem(ctx, strayItem)
	require.NoError(t, err)
	assert.Equal(t, f.milk, item.ProductID)

	bread, err := repo.GetProduct(ctx, f.bread)
	require.NoError(t, err)
	assert.Equal(t, f.dairy, bread.CategoryID)

	dairy, err := repo.GetCategory(ctx, f.dairy)
	require.NoError(t, err)
	assert.Equal(t, []string{"Latticini", "Bakery"}, dairy.AlternateNames)
}

func TestMergeProducts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.MergeProducts(ctx, f.milk, f.bread))

	v, err := repo.GetVariant(ctx, f.skimmed)
	require.NoError(t, err)
	assert.Equal(t, f.bread, v.ProductID)
	item, err := repo.GetItem(ctx, f.milkItem)
	require.NoError(t, err)
	assert.Equal(t, f.bread, item.ProductID)
}

func TestUpdateTransactionMovesItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	require.NoError(t, repo.UpdateTransaction(ctx, core.Transaction{
		ID: f.tx, Date: day(5), TotalCost: core.Money{Cents: 450}, ShopID: &f.otherShop,
	}))

	items, err := repo.ItemsOfTransaction(ctx, f.tx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, f.otherShop, *it.ShopID)
		assert.True(t, it.Date.Equal(day(5)))
	}

	err = repo.UpdateTransaction(ctx, core.Transaction{ID: 999, Date: day(5)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpendingQueries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	_, err := repo.InsertItem(ctx, core.Item{ProductID: f.milk, Price: core.Money{Cents: 500}, Quantity: core.Units, Date: day(9), ShopID: &f.otherShop})
	require.NoError(t, err)

	tests := []struct {
		name  string
		dim   core.Dimension
		total int64
		rows  int
	}{
		{"all", core.All, 950, 3},
		{"shop", core.DimensionOf(core.ByShop, f.shop), 450, 2},
		{"product", core.DimensionOf(core.ByProduct, f.milk), 800, 2},
		{"variant", core.DimensionOf(core.ByVariant, f.skimmed), 300, 1},
		{"category", core.DimensionOf(core.ByCategory, f.bakery), 150, 1},
		{"producer", core.DimensionOf(core.ByProducer, f.producer), 800, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := repo.TotalSpent(ctx, tt.dim)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total.Cents)

			rows, err := repo.SpendingRows(ctx, tt.dim)
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}

	totals, err := repo.TotalsBy(ctx, core.ByCategory)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Dairy", totals[0].Name)
	assert.Equal(t, int64(800), totals[0].Total.Cents)

	history, err := repo.PriceHistory(ctx, f.milk)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(150), history[0].UnitPrice.Cents)
	assert.Equal(t, "Mall", history[1].ShopName)

	_, err = repo.TotalsBy(ctx, core.AllSpending)
	assert.Error(t, err)
}

func TestItemRecordsAndDetails(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	records, err := repo.ItemRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Milk", records[0].ProductName)
	assert.Equal(t, "Skimmed", records[0].VariantName)
	assert.Equal(t, "Farm", records[0].ProducerName)
	assert.Equal(t, "", records[1].ProducerName)

	details, err := repo.TransactionDetails(ctx, f.tx)
	require.NoError(t, err)
	assert.Equal(t, "Corner", details.ShopName)
	assert.Len(t, details.Items, 2)

	empty, err := repo.InsertTransaction(ctx, core.Transaction{Date: day(5), TotalCost: core.Money{Cents: 99}})
	require.NoError(t, err)

	all, err := repo.AllTransactionDetails(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, empty, all[0].ID)
	assert.Empty(t, all[0].Items)
	assert.Equal(t, "", all[0].ShopName)
	assert.Equal(t, f.tx, all[1].ID)
	assert.Equal(t, "Corner", all[1].ShopName)
	assert.Len(t, all[1].Items, 2)
}

func TestWritesSignalChanges(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ch, cancel := repo.Changes().Subscribe()
	defer cancel()
	before := repo.Version()

	_, err := repo.InsertShop(ctx, core.Shop{Name: "Corner"})
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal after insert")
	}
	assert.Equal(t, before+1, repo.Version())
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestUniqueViolationIsErrDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	_, err := repo.InsertShop(ctx, core.Shop{Name: "Mall"})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.UpdateShop(ctx, core.Shop{ID: f.shop, Name: "Mall"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.InsertProduct(ctx, core.Product{Name: "Milk", CategoryID: f.dairy})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.InsertProduct(ctx, core.Product{Name: "Milk", CategoryID: f.bakery})
	assert.NoError(t, err, "product names only clash inside a category")

	_, err = repo.InsertItem(ctx, core.Item{ProductID: 9999})
	assert.NotErrorIs(t, err, ErrDuplicate)
}
