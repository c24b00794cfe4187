package core

import (
	"strings"
	"time"
)

type (
	Shop struct {
		ID   int64
		Name string
	}

	Category struct {
		ID             int64
		Name           string
		AlternateNames []string // used for fuzzy lookups, never unique
	}

	Producer struct {
		ID   int64
		Name string
	}

	// Product names are unique inside their category.
	Product struct {
		ID         int64
		Name       string
		CategoryID int64
		ProducerID *int64
	}

	Variant struct {
		ID        int64
		Name      string
		ProductID int64
	}

	// Item is a single purchased line. Price is what was paid for the
	// whole line, not per unit.
	Item struct {
		ID            int64
		ProductID     int64
		VariantID     *int64
		Price         Money
		Quantity      Quantity
		Date          time.Time
		TransactionID *int64
		ShopID        *int64
	}

	Transaction struct {
		ID        int64
		Date      time.Time
		TotalCost Money
		ShopID    *int64
		Note      *string
	}
)

// MatchesName reports whether name equals the category name or one of its
// alternate names, ignoring case and surrounding spaces.
func (c Category) MatchesName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.EqualFold(c.Name, name) {
		return true
	}
	for _, alt := range c.AlternateNames {
		if strings.EqualFold(strings.TrimSpace(alt), name) {
			return true
		}
	}
	return false
}

// UnitPrice returns the price of one unit of the item.
func (i Item) UnitPrice() Money {
	return i.Price.PerUnit(i.Quantity)
}

// FromMillis converts epoch milliseconds to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc)
}

// NormalizeName trims a display name. Empty means "no value".
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}
