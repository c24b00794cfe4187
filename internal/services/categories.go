package services

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/core"
	"receipts/internal/storage"
)

type CategoryUseCases struct{ *base }

func (u *CategoryUseCases) validate(ctx context.Context, id int64, checkID bool, name string) (string, []core.CategoryError, error) {
	var errs []core.CategoryError
	if checkID {
		ok, err := valid(ctx, id, u.repo.CategoryExists)
		if err != nil {
			return "", nil, fmt.Errorf("check category %d: %w", id, err)
		}
		if !ok {
			errs = append(errs, core.CategoryIDInvalid)
		}
	}
	name, check, err := checkName(ctx, name, id, u.repo.CategoryNameExists)
	if err != nil {
		return "", nil, fmt.Errorf("check category name: %w", err)
	}
	switch check {
	case nameMissing:
		errs = append(errs, core.CategoryNameNoValue)
	case nameTaken:
		errs = append(errs, core.CategoryNameDuplicate)
	}
	return name, errs, nil
}

// cleanNames trims alternate names and drops empty ones.
func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n = core.NormalizeName(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (u *CategoryUseCases) Insert(ctx context.Context, name string, alternateNames []string) (core.Result[core.CategoryError], error) {
	name, errs, err := u.validate(ctx, 0, false, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	id, err := u.repo.InsertCategory(ctx, core.Category{Name: name, AlternateNames: cleanNames(alternateNames)})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.CategoryNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityCategory, amqp.ActionInsert, id))
	return core.Succeed[core.CategoryError](id), nil
}

func (u *CategoryUseCases) Update(ctx context.Context, id int64, name string, alternateNames []string) (core.Result[core.CategoryError], error) {
	name, errs, err := u.validate(ctx, id, true, name)
	if err != nil {
		return nil, err
	}
	if r := core.Collect(errs); r != nil {
		return r, nil
	}
	err = u.repo.UpdateCategory(ctx, core.Category{ID: id, Name: name, AlternateNames: cleanNames(alternateNames)})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return core.Fail(core.CategoryNameDuplicate), nil
		}
		return nil, err
	}
	u.publish(ctx, amqp.NewChangeMessage(amqp.EntityCategory, amqp.ActionUpdate, id))
	return core.Succeed[core.CategoryError](id), nil
}

// Delete is dangerous while the category has products. A confirmed delete
// removes the products and everything recorded against them.
func (u *CategoryUseCases) Delete(ctx context.Context, id int64, confirmed bool) (core.Result[core.DeleteError], error) {
	return u.delete(ctx, deletion{
		entity: amqp.EntityCategory,
		exists: u.repo.CategoryExists,
		remove: u.repo.DeleteCategory,
	}, id, confirmed)
}

// Merge moves the products of source into target. Products with the same
// name in both are folded together.
func (u *CategoryUseCases) Merge(ctx context.Context, sourceID, targetID int64) (core.Result[core.MergeError], error) {
	return u.merge(ctx, merger{
		entity: amqp.EntityCategory,
		exists: u.repo.CategoryExists,
		merge:  u.repo.MergeCategories,
	}, sourceID, targetID)
}

// Find returns the category whose name or alternate name matches name,
// ignoring case.
func (u *CategoryUseCases) Find(ctx context.Context, name string) (*core.Category, bool, error) {
	categories, err := u.repo.ListCategories(ctx)
	if err != nil {
		return nil, false, err
	}
	// exact names win over alternate names
	for i := range categories {
		if categories[i].Name == core.NormalizeName(name) {
			return &categories[i], true, nil
		}
	}
	for i := range categories {
		if categories[i].MatchesName(name) {
			return &categories[i], true, nil
		}
	}
	return nil, false, nil
}

func (u *CategoryUseCases) List(ctx context.Context) ([]core.Category, error) {
	return u.repo.ListCategories(ctx)
}
