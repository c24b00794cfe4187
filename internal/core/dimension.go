package core

import (
	"fmt"
	"strings"
	"time"
)

// DimensionKind is the entity axis spending can be filtered by.
type DimensionKind int

const (
	AllSpending DimensionKind = iota
	ByShop
	ByProduct
	ByCategory
	ByProducer
	ByVariant
)

var dimensionNames = map[DimensionKind]string{
	AllSpending: "all",
	ByShop:      "shop",
	ByProduct:   "product",
	ByCategory:  "category",
	ByProducer:  "producer",
	ByVariant:   "variant",
}

func (k DimensionKind) String() string {
	if name, ok := dimensionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("dimension(%d)", int(k))
}

// ParseDimensionKind accepts the lower-case kind name; empty means all.
func ParseDimensionKind(s string) (DimensionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AllSpending, nil
	}
	for k, name := range dimensionNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid dimension %q", s)
}

// Dimension filters spending to a single entity, or none for AllSpending.
type Dimension struct {
	Kind DimensionKind
	ID   int64
}

// All is the unfiltered dimension.
var All = Dimension{Kind: AllSpending}

func DimensionOf(kind DimensionKind, id int64) Dimension {
	if kind == AllSpending {
		return All
	}
	return Dimension{Kind: kind, ID: id}
}

func (d Dimension) String() string {
	if d.Kind == AllSpending {
		return d.Kind.String()
	}
	return fmt.Sprintf("%s:%d", d.Kind, d.ID)
}

// EntityTotal is the total spent on one entity of a dimension kind.
type EntityTotal struct {
	ID    int64
	Name  string
	Total Money
}

// PricePoint is one observed purchase of a product, used to compare prices
// across shops and over time.
type PricePoint struct {
	ItemID    int64
	Date      time.Time
	ShopID    *int64
	ShopName  string
	Price     Money
	Quantity  Quantity
	UnitPrice Money
}
