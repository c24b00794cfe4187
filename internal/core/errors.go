package core

import "fmt"

// ErrorKind classifies a field error so callers can render a message per
// kind without parsing text.
type ErrorKind int

const (
	NoValueError ErrorKind = iota + 1
	InvalidValueError
	DuplicateValueError
	DangerousDeleteError
)

func (k ErrorKind) String() string {
	switch k {
	case NoValueError:
		return "no_value"
	case InvalidValueError:
		return "invalid_value"
	case DuplicateValueError:
		return "duplicate_value"
	case DangerousDeleteError:
		return "dangerous_delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldError is implemented by every use-case error enumeration.
type FieldError interface {
	comparable
	fmt.Stringer
	Field() string
	Kind() ErrorKind
}

type errorInfo struct {
	name  string
	field string
	kind  ErrorKind
}

func lookupError[E ~int](table []errorInfo, e E) errorInfo {
	if int(e) < 0 || int(e) >= len(table) {
		return errorInfo{name: fmt.Sprintf("error(%d)", int(e)), kind: InvalidValueError}
	}
	return table[e]
}

type ShopError int

const (
	ShopIDInvalid ShopError = iota
	ShopNameNoValue
	ShopNameDuplicate
)

var shopErrors = []errorInfo{
	ShopIDInvalid:     {"ShopIdInvalid", "id", InvalidValueError},
	ShopNameNoValue:   {"NameNoValue", "name", NoValueError},
	ShopNameDuplicate: {"NameDuplicate", "name", DuplicateValueError},
}

func (e ShopError) String() string  { return lookupError(shopErrors, e).name }
func (e ShopError) Field() string   { return lookupError(shopErrors, e).field }
func (e ShopError) Kind() ErrorKind { return lookupError(shopErrors, e).kind }

type CategoryError int

const (
	CategoryIDInvalid CategoryError = iota
	CategoryNameNoValue
	CategoryNameDuplicate
)

var categoryErrors = []errorInfo{
	CategoryIDInvalid:     {"CategoryIdInvalid", "id", InvalidValueError},
	CategoryNameNoValue:   {"NameNoValue", "name", NoValueError},
	CategoryNameDuplicate: {"NameDuplicate", "name", DuplicateValueError},
}

func (e CategoryError) String() string  { return lookupError(categoryErrors, e).name }
func (e CategoryError) Field() string   { return lookupError(categoryErrors, e).field }
func (e CategoryError) Kind() ErrorKind { return lookupError(categoryErrors, e).kind }

type ProducerError int

const (
	ProducerIDInvalid ProducerError = iota
	ProducerNameNoValue
	ProducerNameDuplicate
)

var producerErrors = []errorInfo{
	ProducerIDInvalid:     {"ProducerIdInvalid", "id", InvalidValueError},
	ProducerNameNoValue:   {"NameNoValue", "name", NoValueError},
	ProducerNameDuplicate: {"NameDuplicate", "name", DuplicateValueError},
}

func (e ProducerError) String() string  { return lookupError(producerErrors, e).name }
func (e ProducerError) Field() string   { return lookupError(producerErrors, e).field }
func (e ProducerError) Kind() ErrorKind { return lookupError(producerErrors, e).kind }

type ProductError int

const (
	ProductIDInvalid ProductError = iota
	ProductNameNoValue
	ProductNameDuplicate
	ProductCategoryIDNoValue
	ProductCategoryIDInvalid
	ProductProducerIDInvalid
)

var productErrors = []errorInfo{
	ProductIDInvalid:         {"ProductIdInvalid", "id", InvalidValueError},
	ProductNameNoValue:       {"NameNoValue", "name", NoValueError},
	ProductNameDuplicate:     {"NameDuplicate", "name", DuplicateValueError},
	ProductCategoryIDNoValue: {"CategoryIdNoValue", "category_id", NoValueError},
	ProductCategoryIDInvalid: {"CategoryIdInvalid", "category_id", InvalidValueError},
	ProductProducerIDInvalid: {"ProducerIdInvalid", "producer_id", InvalidValueError},
}

func (e ProductError) String() string  { return lookupError(productErrors, e).name }
func (e ProductError) Field() string   { return lookupError(productErrors, e).field }
func (e ProductError) Kind() ErrorKind { return lookupError(productErrors, e).kind }

type VariantError int

const (
	VariantIDInvalid VariantError = iota
	VariantNameNoValue
	VariantProductIDNoValue
	VariantProductIDInvalid
)

var variantErrors = []errorInfo{
	VariantIDInvalid:        {"VariantIdInvalid", "id", InvalidValueError},
	VariantNameNoValue:      {"NameNoValue", "name", NoValueError},
	VariantProductIDNoValue: {"ProductIdNoValue", "product_id", NoValueError},
	VariantProductIDInvalid: {"ProductIdInvalid", "product_id", InvalidValueError},
}

func (e VariantError) String() string  { return lookupError(variantErrors, e).name }
func (e VariantError) Field() string   { return lookupError(variantErrors, e).field }
func (e VariantError) Kind() ErrorKind { return lookupError(variantErrors, e).kind }

type ItemError int

const (
	ItemIDInvalid ItemError = iota
	ItemProductIDNoValue
	ItemProductIDInvalid
	ItemVariantIDInvalid
	ItemPriceNoValue
	ItemPriceInvalid
	ItemQuantityInvalid
	ItemDateNoValue
	ItemDateInvalid
	ItemTransactionIDInvalid
	ItemShopIDInvalid
)

var itemErrors = []errorInfo{
	ItemIDInvalid:            {"ItemIdInvalid", "id", InvalidValueError},
	ItemProductIDNoValue:     {"ProductIdNoValue", "product_id", NoValueError},
	ItemProductIDInvalid:     {"ProductIdInvalid", "product_id", InvalidValueError},
	ItemVariantIDInvalid:     {"VariantIdInvalid", "variant_id", InvalidValueError},
	ItemPriceNoValue:         {"PriceNoValue", "price", NoValueError},
	ItemPriceInvalid:         {"PriceInvalid", "price", InvalidValueError},
	ItemQuantityInvalid:      {"QuantityInvalid", "quantity", InvalidValueError},
	ItemDateNoValue:          {"DateNoValue", "date", NoValueError},
	ItemDateInvalid:          {"DateInvalid", "date", InvalidValueError},
	ItemTransactionIDInvalid: {"TransactionIdInvalid", "transaction_id", InvalidValueError},
	ItemShopIDInvalid:        {"ShopIdInvalid", "shop_id", InvalidValueError},
}

func (e ItemError) String() string  { return lookupError(itemErrors, e).name }
func (e ItemError) Field() string   { return lookupError(itemErrors, e).field }
func (e ItemError) Kind() ErrorKind { return lookupError(itemErrors, e).kind }

type TransactionError int

const (
	TransactionIDInvalid TransactionError = iota
	TransactionDateNoValue
	TransactionDateInvalid
	TransactionTotalCostNoValue
	TransactionTotalCostInvalid
	TransactionShopIDInvalid
)

var transactionErrors = []errorInfo{
	TransactionIDInvalid:        {"TransactionIdInvalid", "id", InvalidValueError},
	TransactionDateNoValue:      {"DateNoValue", "date", NoValueError},
	TransactionDateInvalid:      {"DateInvalid", "date", InvalidValueError},
	TransactionTotalCostNoValue: {"TotalCostNoValue", "total_cost", NoValueError},
	TransactionTotalCostInvalid: {"TotalCostInvalid", "total_cost", InvalidValueError},
	TransactionShopIDInvalid:    {"ShopIdInvalid", "shop_id", InvalidValueError},
}

func (e TransactionError) String() string  { return lookupError(transactionErrors, e).name }
func (e TransactionError) Field() string   { return lookupError(transactionErrors, e).field }
func (e TransactionError) Kind() ErrorKind { return lookupError(transactionErrors, e).kind }

type DeleteError int

const (
	InvalidID DeleteError = iota
	DangerousDelete
)

var deleteErrors = []errorInfo{
	InvalidID:       {"InvalidId", "id", InvalidValueError},
	DangerousDelete: {"DangerousDelete", "id", DangerousDeleteError},
}

func (e DeleteError) String() string  { return lookupError(deleteErrors, e).name }
func (e DeleteError) Field() string   { return lookupError(deleteErrors, e).field }
func (e DeleteError) Kind() ErrorKind { return lookupError(deleteErrors, e).kind }

type MergeError int

const (
	MergeSourceIDInvalid MergeError = iota
	MergeTargetIDInvalid
	MergeSameEntity
)

var mergeErrors = []errorInfo{
	MergeSourceIDInvalid: {"SourceIdInvalid", "source_id", InvalidValueError},
	MergeTargetIDInvalid: {"TargetIdInvalid", "target_id", InvalidValueError},
	MergeSameEntity:      {"SameEntity", "target_id", InvalidValueError},
}

func (e MergeError) String() string  { return lookupError(mergeErrors, e).name }
func (e MergeError) Field() string   { return lookupError(mergeErrors, e).field }
func (e MergeError) Kind() ErrorKind { return lookupError(mergeErrors, e).kind }
