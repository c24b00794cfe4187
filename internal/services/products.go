package services

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

type ProductUseCases struct{ *base }

func (u *ProductUseCases) validate(ctx context.Context, id int64, checkID bool, name string, categoryID, producerID *int64) (string, []core.ProductError, error) {
	var errs []core.ProductError
	if checkID {
		ok, err := valid(ctx, id, u.repo.ProductExists)
		if err != nil {
			return "", nil, fmt.Errorf("check product %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.ProductIDInvalid)
		}
	}

	categoryOK := false
	if categoryID != nil {
		var err error
		categoryOK, err = valid(ctx, *categoryID, u.repo.CategoryExists)
		if err != nil {
			return "", nil, fmt.Errorf("check category %d: %w", *categoryID, err)
		}
	}

	// Names are unique per category, so a duplicate can only be detected
	// once the category is known.
	name = core.NormalizeName(name)
	if name == "" {
		errs = append(errs, core.ProductNameNoValue)
	} else if categoryOK {
		dup, err := u.repo.ProductNameExists(ctx, name, *categoryID, id)
		if err != nil {
			return "", nil, fmt.Errorf("check product name: %w", err)
		}
		if dup {
			errs = append(errs, core.ProductNameDuplicate)
		}
	}

	switch {
	case categoryID == nil:
		errs = append(errs, core.ProductCategoryIDNoValue)
	case !categoryOK:
		errs = append(errs, core.ProductCategoryIDInvalid)
	}

	if producerID != nil {
		ok, err := valid(ctx, *producerID, u.repo.ProducerExists)
		if err != nil {
			return "", nil, fmt.Errorf("check producer %d: %w", *producerID, err)
		}
		if !ok {
			errs = append(errs, core.ProductProducerIDInvalid)
		}
	}
	return name, errs, nil
}

func (u *ProductUseCases) Insert(ctx context.Context, name string, categoryID, producerID *int64) (core.Result[core.ProductError], error) {
	name, errs, err := u.validate(ctx, 0, false, name, categoryID, producerID)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertProduct(ctx, core.Product{Name: name, CategoryID: *categoryID, ProducerID: producerID})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ProductNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityProduct, amqp.ActionInsert, id))
	return core.Succeed[core.ProductError](id), nil
}

func (u *ProductUseCases) Update(ctx context.Context, id int64, name string, categoryID, producerID *int64) (core.Result[core.ProductError], error) {
	name, errs, err := u.validate(ctx, id, true, name, categoryID, producerID)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	err = u.repo.UpdateProduct(ctx, core.Product{ID: id, Name: name, CategoryID: *categoryID, ProducerID: producerID})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ProductNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityProduct, amqp.ActionUpdate, id))
	return core.Succeed[core.ProductError](id), nil
}

// Delete is dangerous while the product has items or variants. A confirmed
// delete removes them too.
func (u *ProductUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityProduct,
		exists: u.repo.ProductExists,
		remove: u.repo.DeleteProduct,
	}, id, confirmed)
}

func (u *ProductUseCases) Merge(ctx context.Context, sourceID, targetID int64) (core.Result[core.MergeError], error) {
	return u.merge(ctx, merger{
		entity: amqp.EntityProduct,
		exists: u.repo.ProductExists,
		merge:  u.repo.MergeProducts,
	}, sourceID, targetID)
}

func (u *ProductUseCases) List(ctx context.Context) ([]core.Product, error) {
	return u.repo.ListProducts(ctx)
}
