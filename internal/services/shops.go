package services

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

type ShopUseCases struct{ *base }

func (u *ShopUseCases) validate(ctx context.Context, id int64, checkID bool, name string) (string, []core.ShopError, error) {
	var errs []core.ShopError
	if checkID {
		ok, err := valid(ctx, id, u.repo.ShopExists)
		if err != nil {
			return "", nil, fmt.Errorf("check shop %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.ShopIDInvalid)
		}
	}
	name, check, err := checkName(ctx, name, id, u.repo.ShopNameExists)
	if err != nil {
		return "", nil, fmt.Errorf("check shop name: %w", err)
	}
	switch check {
	case nameMissing:
		errs = append(errs, core.ShopNameNoValue)
	case nameTaken:
		errs = append(errs, core.ShopNameDuplicate)
	}
	return name, errs, nil
}

func (u *ShopUseCases) Insert(ctx context.Context, name string) (core.Result[core.ShopError], error) {
	name, errs, err := u.validate(ctx, 0, false, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertShop(ctx, core.Shop{Name: name})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ShopNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityShop, amqp.ActionInsert, id))
	return core.Succeed[core.ShopError](id), nil
}

func (u *ShopUseCases) Update(ctx context.Context, id int64, name string) (core.Result[core.ShopError], error) {
	name, errs, err := u.validate(ctx, id, true, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	if err := u.repo.UpdateShop(ctx, core.Shop{ID: id, Name: name}); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ShopNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityShop, amqp.ActionUpdate, id))
	return core.Succeed[core.ShopError](id), nil
}

// Delete is dangerous while items or transactions reference the shop. A
// confirmed delete leaves them without a shop.
func (u *ShopUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityShop,
		exists: u.repo.ShopExists,
		remove: u.repo.DeleteShop,
	}, id, confirmed)
}

func (u *ShopUseCases) Merge(ctx context.Context, sourceID, targetID int64) (core.Result[core.MergeError], error) {
	return u.merge(ctx, merger{
		entity: amqp.EntityShop,
		exists: u.repo.ShopExists,
		merge:  u.repo.MergeShops,
	}, sourceID, targetID)
}

func (u *ShopUseCases) Get(ctx context.Context, id int64) (*core.Shop, error) {
	return u.repo.GetShop(ctx, id)
}

func (u *ShopUseCases) List(ctx context.Context) ([]core.Shop, error) {
	return u.repo.ListShops(ctx)
}
