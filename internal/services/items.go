package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

// ItemInput is an item as entered. A nil Quantity means one unit. Date and
// ShopID default to those of the transaction when one is given.
type ItemInput struct {
	ProductID     *int64
	VariantID     *int64
	Price         *string
	Quantity      *string
	Date          *int64
	TransactionID *int64
	ShopID        *int64
}

type ItemUseCases struct{ *base }

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func (u *ItemUseCases) validate(ctx context.Context, id int64, checkID bool, in ItemInput) (core.Item, []core.ItemError, error) {
	var errs []core.ItemError
	it := core.Item{ID: id, VariantID: in.VariantID, TransactionID: in.TransactionID, ShopID: in.ShopID}

	if checkID {
		ok, err := valid(ctx, id, u.repo.ItemExists)
		if err != nil {
			return it, nil, fmt.Errorf("check item %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.ItemIDInvalid)
		}
	}

	productOK := false
	if in.ProductID == nil {
		errs = append(errs, core.ItemProductIDNoValue)
	} else {
		var err error
		if productOK, err = valid(ctx, *in.ProductID, u.repo.ProductExists); err != nil {
			return it, nil, fmt.Errorf("check product %d: %w", *in.ProductID, err)
		}
		if !productOK {
			errs = append(errs, core.ItemProductIDInvalid)
		} else {
			it.ProductID = *in.ProductID
		}
	}

	if in.VariantID != nil {
		ok, err := u.variantOf(ctx, *in.VariantID, it.ProductID, productOK)
		if err != nil {
			return it, nil, err
		}
		if !ok {
			errs = append(errs, core.ItemVariantIDInvalid)
		}
	}

	if blank(in.Price) {
		errs = append(errs, core.ItemPriceNoValue)
	} else if price, err := core.ParseMoney(*in.Price); err != nil {
		errs = append(errs, core.ItemPriceInvalid)
	} else {
		it.Price = price
	}

	it.Quantity = core.Units
	if !blank(in.Quantity) {
		q, err := core.ParseQuantity(*in.Quantity)
		if err != nil {
			errs = append(errs, core.ItemQuantityInvalid)
		} else {
			it.Quantity = q
		}
	}

	// The transaction is looked up before the date so it can supply one,
	// but its error is reported in field order.
	var tx *core.Transaction
	txInvalid := false
	if in.TransactionID != nil {
		t, err := u.transaction(ctx, *in.TransactionID)
		if err != nil {
			return it, nil, err
		}
		tx = t
		txInvalid = t == nil
	}

	switch {
	case in.Date != nil && *in.Date < 0:
		errs = append(errs, core.ItemDateInvalid)
	case in.Date != nil:
		it.Date = core.FromMillis(*in.Date, nil)
	case tx != nil:
		it.Date = tx.Date
	default:
		errs = append(errs, core.ItemDateNoValue)
	}

	if txInvalid {
		errs = append(errs, core.ItemTransactionIDInvalid)
	}

	if in.ShopID != nil {
		ok, err := valid(ctx, *in.ShopID, u.repo.ShopExists)
		if err != nil {
			return it, nil, fmt.Errorf("check shop %d: %w", *in.ShopID, err)
		}
		if !ok {
			errs = append(errs, core.ItemShopIDInvalid)
		}
	} else if tx != nil {
		it.ShopID = tx.ShopID
	}
	return it, errs, nil
}

// variantOf reports whether variantID exists and, when the product is
// known, belongs to it.
func (u *ItemUseCases) variantOf(ctx context.Context, variantID, productID int64, productKnown bool) (bool, error) {
	if variantID <= 0 {
		return false, nil
	}
	v, err := u.repo.GetVariant(ctx, variantID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !productKnown || v.ProductID == productID, nil
}

func (u *ItemUseCases) transaction(ctx context.Context, id int64) (*core.Transaction, error) {
	if id <= 0 {
		return nil, nil
	}
	t, err := u.repo.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (u *ItemUseCases) Insert(ctx context.Context, in ItemInput) (core.Result[core.ItemError], error) {
	it, errs, err := u.validate(ctx, 0, false, in)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertItem(ctx, it)
	if err != nil {
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityItem, amqp.ActionInsert, id))
	return core.Succeed[core.ItemError](id), nil
}

func (u *ItemUseCases) Update(ctx context.Context, id int64, in ItemInput) (core.Result[core.ItemError], error) {
	it, errs, err := u.validate(ctx, id, true, in)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	prev, err := u.repo.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}
	if err := u.repo.UpdateItem(ctx, it); err != nil {
		return nil, err
	}
	msg := amqp.NewChangeMessage(amqp.EntityItem, amqp.ActionUpdate, id)
	if from := prev.TransactionID; from != nil && (it.TransactionID == nil || *it.TransactionID != *from) {
		msg = amqp.NewItemMoveMessage(id, *from)
	}
	u.publish(ctx, msg)
	return core.Succeed[core.ItemError](id), nil
}

// Delete never needs confirmation: nothing references an item.
func (u *ItemUseCases) Delete(ctx context.Context, id int64) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityItem,
		exists: u.repo.ItemExists,
		remove: func(ctx context.Context, id int64, _ bool) error {
			return u.repo.DeleteItem(ctx, id)
		},
	}, id, false)
}

func (u *ItemUseCases) List(ctx context.Context) ([]core.Item, error) {
	return u.repo.ListItems(ctx)
}
