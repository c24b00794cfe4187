package services

import (
	"context"
	"fmt"
	"strings"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

// TransactionInput is a transaction as entered. Nil means the field was
// left empty. Date is epoch milliseconds, TotalCost a decimal string.
type TransactionInput struct {
	Date      *int64
	TotalCost *string
	Note      *string
	ShopID    *int64
}

type TransactionUseCases struct{ *base }

func (u *TransactionUseCases) validate(ctx context.Context, id int64, checkID bool, in TransactionInput) (core.Transaction, []core.TransactionError, error) {
	var errs []core.TransactionError
	t := core.Transaction{ID: id, ShopID: in.ShopID}

	if checkID {
		ok, err := valid(ctx, id, u.repo.TransactionExists)
		if err != nil {
			return t, nil, fmt.Errorf("check transaction %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.TransactionIDInvalid)
		}
	}

	switch {
	case in.Date == nil:
		errs = append(errs, core.TransactionDateNoValue)
	case *in.Date < 0:
		errs = append(errs, core.TransactionDateInvalid)
	default:
		t.Date = core.FromMillis(*in.Date, nil)
	}

	if in.TotalCost == nil || strings.TrimSpace(*in.TotalCost) == "" {
		errs = append(errs, core.TransactionTotalCostNoValue)
	} else if cost, err := core.ParseMoney(*in.TotalCost); err != nil {
		errs = append(errs, core.TransactionTotalCostInvalid)
	} else {
		t.TotalCost = cost
	}

	if in.ShopID != nil {
		ok, err := valid(ctx, *in.ShopID, u.repo.ShopExists)
		if err != nil {
			return t, nil, fmt.Errorf("check shop %d: %w", *in.ShopID, err)
		}
		if !ok {
			errs = append(errs, core.TransactionShopIDInvalid)
		}
	}

	if in.Note != nil {
		if note := strings.TrimSpace(*in.Note); note != "" {
			t.Note = &note
		}
	}
	return t, errs, nil
}

// Insert validates every field and stores the transaction. All violated
// rules are reported together.
func (u *TransactionUseCases) Insert(ctx context.Context, in TransactionInput) (core.Result[core.TransactionError], error) {
	t, errs, err := u.validate(ctx, 0, false, in)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertTransaction(ctx, t)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionInsert, id))
	return core.Succeed[core.TransactionError](id), nil
}

// Update rewrites the transaction. Its items move to the new shop and date.
func (u *TransactionUseCases) Update(ctx context.Context, id int64, in TransactionInput) (core.Result[core.TransactionError], error) {
	t, errs, err := u.validate(ctx, id, true, in)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	if err := u.repo.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityTransaction, amqp.ActionUpdate, id))
	return core.Succeed[core.TransactionError](id), nil
}

// Delete is dangerous while the transaction has items. A confirmed delete
// removes them with it.
func (u *TransactionUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityTransaction,
		exists: u.repo.TransactionExists,
		remove: u.repo.DeleteTransaction,
	}, id, confirmed)
}

func (u *TransactionUseCases) Details(ctx context.Context, id int64) (*storage.TransactionDetails, error) {
	return u.repo.TransactionDetails(ctx, id)
}

func (u *TransactionUseCases) List(ctx context.Context) ([]core.Transaction, error) {
	return u.repo.ListTransactions(ctx)
}
