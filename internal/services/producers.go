package services

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

type ProducerUseCases struct{ *base }

func (u *ProducerUseCases) validate(ctx context.Context, id int64, checkID bool, name string) (string, []core.ProducerError, error) {
	var errs []core.ProducerError
	if checkID {
		ok, err := valid(ctx, id, u.repo.ProducerExists)
		if err != nil {
			return "", nil, fmt.Errorf("check producer %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.ProducerIDInvalid)
		}
	}
	name, check, err := checkName(ctx, name, id, u.repo.ProducerNameExists)
	if err != nil {
		return "", nil, fmt.Errorf("check producer name: %w", err)
	}
	switch check {
	case nameMissing:
		errs = append(errs, core.ProducerNameNoValue)
	case nameTaken:
		errs = append(errs, core.ProducerNameDuplicate)
	}
	return name, errs, nil
}

func (u *ProducerUseCases) Insert(ctx context.Context, name string) (core.Result[core.ProducerError], error) {
	name, errs, err := u.validate(ctx, 0, false, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertProducer(ctx, core.Producer{Name: name})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ProducerNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityProducer, amqp.ActionInsert, id))
	return core.Succeed[core.ProducerError](id), nil
}

func (u *ProducerUseCases) Update(ctx context.Context, id int64, name string) (core.Result[core.ProducerError], error) {
	name, errs, err := u.validate(ctx, id, true, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	if err := u.repo.UpdateProducer(ctx, core.Producer{ID: id, Name: name}); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.ProducerNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityProducer, amqp.ActionUpdate, id))
	return core.Succeed[core.ProducerError](id), nil
}

// Delete is dangerous while products are made by the producer.
func (u *ProducerUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityProducer,
		exists: u.repo.ProducerExists,
		remove: u.repo.DeleteProducer,
	}, id, confirmed)
}

func (u *ProducerUseCases) Merge(ctx context.Context, sourceID, targetID int64) (core.Result[core.MergeError], error) {
	return u.merge(ctx, merger{
		entity: amqp.EntityProducer,
		exists: u.repo.ProducerExists,
		merge:  u.repo.MergeProducers,
	}, sourceID, targetID)
}

func (u *ProducerUseCases) List(ctx context.Context) ([]core.Producer, error) {
	return u.repo.ListProducers(ctx)
}
