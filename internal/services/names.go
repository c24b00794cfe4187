package services

import (
	"context"

	"receipts/internal/core"
)

type nameCheck int

const (
	nameOK nameCheck = iota
	nameMissing
	nameTaken
)

// checkName trims name and looks for another entity using it.
func checkName(ctx context.Context, name string, excludeID int64, taken func(ctx context.Context, name string, excludeID int64) (bool, error)) (string, nameCheck, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return name, nameMissing, nil
	}
	dup, err := taken(ctx, name, excludeID)
	if err != nil {
		return name, nameOK, err
	}
	if dup {
		return name, nameTaken, nil
	}
	return name, nameOK, nil
}
