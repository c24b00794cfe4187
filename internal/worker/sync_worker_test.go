package worker

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/sheets/memory"
	"receipts/internal/storage"
)

type env struct {
	repo   *storage.SQLiteRepository
	sink   *memory.Store
	worker *SyncWorker
	shop   int64
	milk   int64
}

func newEnv(t *testing.T) env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "receipts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	shop, err := repo.InsertShop(ctx, core.Shop{Name: "Corner"})
	require.NoError(t, err)
	dairy, err := repo.InsertCategory(ctx, core.Category{Name: "Dairy"})
	require.NoError(t, err)
	milk, err := repo.InsertProduct(ctx, core.Product{Name: "Milk", CategoryID: dairy})
	require.NoError(t, err)

	sink := memory.New(time.UTC)
	return env{repo: repo, sink: sink, worker: NewSyncWorker(repo, sink), shop: shop, milk: milk}
}

func (e env) addTransaction(t *testing.T, day int) (tx, item int64) {
	t.Helper()
	ctx := context.Background()
	date := time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
	tx, err := e.repo.InsertTransaction(ctx, core.Transaction{Date: date, TotalCost: core.Money{Cents: 300}, ShopID: &e.shop})
	require.NoError(t, err)
	item, err = e.repo.InsertItem(ctx, core.Item{
		ProductID: e.milk, Price: core.Money{Cents: 300}, Quantity: core.Units, Date: date, TransactionID: &tx, ShopID: &e.shop,
	})
	require.NoError(t, err)
	return tx, item
}

func TestHandleTransactionInsertAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tx, _ := e.addTransaction(t, 1)

	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionInsert, tx)))
	assert.Equal(t, []int64{tx}, e.sink.Transactions())

	rows := e.sink.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Corner", rows[1][2])
	assert.Equal(t, "Milk", rows[1][6])

	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionDelete, tx)))
	assert.Empty(t, e.sink.Transactions())
}

func TestHandleTransactionGoneRemovesRows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tx, _ := e.addTransaction(t, 1)
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionInsert, tx)))

	require.NoError(t, e.repo.DeleteTransaction(ctx, tx, true))
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionUpdate, tx)))
	assert.Empty(t, e.sink.Transactions())
}

func TestHandleItemRewritesItsTransaction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tx, _ := e.addTransaction(t, 1)

	second, err := e.repo.InsertItem(ctx, core.Item{
		ProductID: e.milk, Price: core.Money{Cents: 150}, Quantity: core.Units,
		Date: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), TransactionID: &tx,
	})
	require.NoError(t, err)
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityItem, amqp.ActionInsert, second)))
	assert.Len(t, e.sink.Rows(), 3)

	loose, err := e.repo.InsertItem(ctx, core.Item{ProductID: e.milk, Price: core.Money{Cents: 99}, Quantity: core.Units, Date: time.Now()})
	require.NoError(t, err)
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityItem, amqp.ActionInsert, loose)))
	assert.Len(t, e.sink.Rows(), 3)
}

func TestHandleItemMovedBetweenTransactions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	from, item := e.addTransaction(t, 1)
	to, _ := e.addTransaction(t, 2)
	require.NoError(t, e.worker.Resync(ctx))

	moved, err := e.repo.GetItem(ctx, item)
	require.NoError(t, err)
	moved.TransactionID = &to
	require.NoError(t, e.repo.UpdateItem(ctx, *moved))
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewItemMoveMessage(item, from)))

	itemID := strconv.FormatInt(item, 10)
	var owners []string
	for _, row := range e.sink.Rows()[1:] {
		if row[5] == itemID {
			owners = append(owners, row[0])
		}
	}
	assert.Equal(t, []string{strconv.FormatInt(to, 10)}, owners)
}

func TestRenameAndMergeResync(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first, _ := e.addTransaction(t, 1)
	second, _ := e.addTransaction(t, 2)
	require.NoError(t, e.worker.Resync(ctx))

	require.NoError(t, e.repo.UpdateShop(ctx, core.Shop{ID: e.shop, Name: "Corner Market"}))
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityShop, amqp.ActionUpdate, e.shop)))

	for _, row := range e.sink.Rows()[1:] {
		assert.Equal(t, "Corner Market", row[2])
	}
	assert.Equal(t, []int64{first, second}, e.sink.Transactions())

	// inserts of referenced entities never touch the export
	other, err := e.repo.InsertShop(ctx, core.Shop{Name: "Mall"})
	require.NoError(t, err)
	require.NoError(t, e.worker.HandleChange(ctx, amqp.NewChangeMessage(amqp.EntityShop, amqp.ActionInsert, other)))
	assert.Len(t, e.sink.Rows(), 3)
}

type fakeConsumer struct {
	messages []*amqp.ChangeMessage
	handled  chan struct{}
}

func (f *fakeConsumer) ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error {
	for _, msg := range f.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	close(f.handled)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	e := newEnv(t)
	tx, _ := e.addTransaction(t, 1)
	// rows written before Run are picked up by the startup resync
	require.Empty(t, e.sink.Transactions())

	consumer := &fakeConsumer{
		messages: []*amqp.ChangeMessage{amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionDelete, tx)},
		handled:  make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.worker.Run(ctx, consumer, 0) }()

	select {
	case <-consumer.handled:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never ran")
	}
	assert.Empty(t, e.sink.Transactions())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
