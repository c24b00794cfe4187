package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/sheets"
	"receipts/internal/storage"
)

// Store is the part of the repository the worker reads.
type Store interface {
	GetItem(ctx context.Context, id int64) (*core.Item, error)
	TransactionDetails(ctx context.Context, id int64) (*storage.TransactionDetails, error)
	AllTransactionDetails(ctx context.Context) ([]storage.TransactionDetails, error)
}

// Consumer delivers change messages until ctx is done.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// SyncWorker keeps the export sink in step with the database. Transaction
// writes are applied one transaction at a time; anything that can touch
// many exported rows (renames, merges, item deletes) rewrites the sink.
type SyncWorker struct {
	store Store
	sink  sheets.Sink
	group singleflight.Group
}

func NewSyncWorker(store Store, sink sheets.Sink) *SyncWorker {
	return &SyncWorker{store: store, sink: sink}
}

// HandleChange applies one change message to the sink.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.DebugContext(ctx, "Processing change message", "entity", msg.Entity, "action", msg.Action, "id", msg.ID)

	switch msg.Entity {
	case amqp.EntityTransaction:
		if msg.Action == amqp.ActionDelete {
			return w.deleteTransaction(ctx, msg.ID)
		}
		return w.writeTransaction(ctx, msg.ID)

	case amqp.EntityItem:
		if msg.Action == amqp.ActionInsert || msg.Action == amqp.ActionUpdate {
			if msg.FromID != 0 {
				if err := w.writeTransaction(ctx, msg.FromID); err != nil {
					return err
				}
			}
			return w.writeItem(ctx, msg.ID)
		}
		return w.Resync(ctx)

	default:
		// a new shop, product or category is not referenced by anything yet
		if msg.Action == amqp.ActionInsert {
			return nil
		}
		return w.Resync(ctx)
	}
}

func (w *SyncWorker) writeTransaction(ctx context.Context, id int64) error {
	details, err := w.store.TransactionDetails(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// deleted after the message was sent
		return w.deleteTransaction(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	ref, err := w.sink.WriteTransaction(ctx, *details)
	if err != nil {
		return fmt.Errorf("write transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Exported transaction", "id", id, "items", len(details.Items), "ref", ref)
	return nil
}

func (w *SyncWorker) deleteTransaction(ctx context.Context, id int64) error {
	if err := w.sink.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Removed transaction from export", "id", id)
	return nil
}

// writeItem rewrites the transaction the item belongs to. The transaction
// it left, if any, is named by the message. A full resync is the only
// safe answer when the item is gone.
func (w *SyncWorker) writeItem(ctx context.Context, id int64) error {
	item, err := w.store.GetItem(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return w.Resync(ctx)
	}
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	if item.TransactionID == nil {
		return nil
	}
	return w.writeTransaction(ctx, *item.TransactionID)
}

// Resync rewrites the whole sink from the database. Concurrent calls share
// one rewrite.
func (w *SyncWorker) Resync(ctx context.Context) error {
	_, err, shared := w.group.Do("resync", func() (any, error) {
		ts, err := w.store.AllTransactionDetails(ctx)
		if err != nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		if err := w.sink.ReplaceAll(ctx, ts); err != nil {
			return nil, fmt.Errorf("replace export: %w", err)
		}
		slog.InfoContext(ctx, "Export resynchronized", "transactions", len(ts))
		return nil, nil
	})
	if shared {
		slog.DebugContext(ctx, "Joined running resync")
	}
	return err
}

// Run resynchronizes once, then consumes change messages and resyncs every
// interval as a backstop for lost messages. interval <= 0 disables the
// periodic resync. Run returns when ctx is done or the consumer fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.Resync(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup resync failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeChanges(ctx, w.HandleChange)
	})

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := w.Resync(ctx); err != nil {
						slog.WarnContext(ctx, "Periodic resync failed", "error", err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
