package services

import (
	"context"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
)

type VariantUseCases struct{ *base }

func (u *VariantUseCases) validate(ctx context.Context, id int64, checkID bool, name string, productID *int64) (string, []core.VariantError, error) {
	var errs []core.VariantError
	if checkID {
		ok, err := valid(ctx, id, u.repo.VariantExists)
		if err != nil {
			return "", nil, fmt.Errorf("check variant %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.VariantIDInvalid)
		}
	}
	name = core.NormalizeName(name)
	if name == "" {
		errs = append(errs, core.VariantNameNoValue)
	}
	if productID == nil {
		errs = append(errs, core.VariantProductIDNoValue)
	} else {
		ok, err := valid(ctx, *productID, u.repo.ProductExists)
		if err != nil {
			return "", nil, fmt.Errorf("check product %d: %w", *productID, err)
		}
		if !ok {
			errs = append(errs, core.VariantProductIDInvalid)
		}
	}
	return name, errs, nil
}

func (u *VariantUseCases) Insert(ctx context.Context, name string, productID *int64) (core.Result[core.VariantError], error) {
	name, errs, err := u.validate(ctx, 0, false, name, productID)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertVariant(ctx, core.Variant{Name: name, ProductID: *productID})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityVariant, amqp.ActionInsert, id))
	return core.Succeed[core.VariantError](id), nil
}

func (u *VariantUseCases) Update(ctx context.Context, id int64, name string, productID *int64) (core.Result[core.VariantError], error) {
	name, errs, err := u.validate(ctx, id, true, name, productID)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	if err := u.repo.UpdateVariant(ctx, core.Variant{ID: id, Name: name, ProductID: *productID}); err != nil {
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityVariant, amqp.ActionUpdate, id))
	return core.Succeed[core.VariantError](id), nil
}

// Delete is dangerous while items were bought as this variant. A confirmed
// delete keeps the items under their product.
func (u *VariantUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityVariant,
		exists: u.repo.VariantExists,
		remove: u.repo.DeleteVariant,
	}, id, confirmed)
}

func (u *VariantUseCases) List(ctx context.Context, productID int64) ([]core.Variant, error) {
	return u.repo.ListVariants(ctx, productID)
}
