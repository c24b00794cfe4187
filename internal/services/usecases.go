package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

// ChangePublisher announces committed writes to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// UseCases groups the validated write operations of every entity.
type UseCases struct {
	Shops        *ShopUseCases
	Categories   *CategoryUseCases
	Producers    *ProducerUseCases
	Products     *ProductUseCases
	Variants     *VariantUseCases
	Items        *ItemUseCases
	Transactions *TransactionUseCases
}

// New wires the use cases to repo. publisher may be nil.
func New(repo *storage.SQLiteRepository, publisher ChangePublisher) *UseCases {
	b := &base{repo: repo, publisher: publisher}
	return &UseCases{
		Shops:        &ShopUseCases{b},
		Categories:   &CategoryUseCases{b},
		Producers:    &ProducerUseCases{b},
		Products:     &ProductUseCases{b},
		Variants:     &VariantUseCases{b},
		Items:        &ItemUseCases{b},
		Transactions: &TransactionUseCases{b},
	}
}

type base struct {
	repo      *storage.SQLiteRepository
	publisher ChangePublisher
}

// publish never fails the caller: the write is already committed.
func (b *base) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	if b.publisher == nil {
		slog.DebugContext(ctx, "No change publisher, skipping change message", "entity", msg.Entity, "id", msg.ID)
		return
	}
	if err := b.publisher.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"entity", msg.Entity,
			"action", msg.Action,
			"id", msg.ID,
			"error", err)
	}
}

type existsFunc func(ctx context.Context, id int64) (bool, error)

// valid reports whether id refers to an existing row. Non-positive ids
// are never valid.
func valid(ctx context.Context, id int64, exists existsFunc) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return exists(ctx, id)
}

// deletion describes how one entity is deleted. remove checks for
// dependents in the same storage transaction as the delete and fails with
// storage.ErrHasDependents when the delete is not confirmed.
type deletion struct {
	entity string
	exists existsFunc
	remove func(ctx context.Context, id int64, confirmed bool) error
}

// delete refuses to remove an entity that others depend on unless
// confirmed. The caller asks the user and retries with confirmed set.
func (b *base) delete(ctx context.Context, d deletion, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	ok, err := valid(ctx, id, d.exists)
	if err != nil {
		return nil, fmt.Errorf("check %s %d: %w", d.entity, id, err)
	}
	if !ok {
		return core.Fail(core.InvalidID), nil
	}

	err = d.remove(ctx, id, confirmed)
	if errors.Is(err, storage.ErrHasDependents) {
		return core.Fail(core.DangerousDelete), nil
	}
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Entity deleted", "entity", d.entity, "id", id, "confirmed", confirmed)
	b.publish(ctx, amqp.NewChangeMessage(d.entity, amqp.ActionDelete, id))
	return core.Succeed[core.DeleteError](id), nil
}

type merger struct {
	entity string
	exists existsFunc
	merge  func(ctx context.Context, sourceID, targetID int64) error
}

// merge moves everything referencing source to target and deletes source
// in one transaction. On success the result carries the target id.
func (b *base) merge(ctx context.Context, m merger, sourceID, targetID int64) (core.Result[core.MergeError], error) {
	var errs []core.MergeError

	ok, err := valid(ctx, sourceID, m.exists)
	if err != nil {
		return nil, fmt.Errorf("check %s %d: %w", m.entity, sourceID, err)
	}
	if !ok {
		errs = append(errs, core.MergeSourceIDInvalid)
	}
	ok, err = valid(ctx, targetID, m.exists)
	if err != nil {
		return nil, fmt.Errorf("check %s %d: %w", m.entity, targetID, err)
	}
	if !ok {
		errs = append(errs, core.MergeTargetIDInvalid)
	}
	if len(errs) == 0 && sourceID == targetID {
		errs = append(errs, core.MergeSameEntity)
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}

	if err := m.merge(ctx, sourceID, targetID); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Entities merged", "entity", m.entity, "source_id", sourceID, "target_id", targetID)
	b.publish(ctx, amqp.NewMergeMessage(m.entity, sourceID, targetID))
	return core.Succeed[core.MergeError](targetID), nil
}
