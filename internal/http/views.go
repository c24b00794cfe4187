package http

import (
	"time"

	"receipts/internal/core"
	"receipts/internal/spending"
	"receipts/internal/storage"
)

// Amounts are rendered as fixed-point strings ("4.50") and times as
// RFC 3339 in the bucket location, so clients never deal with floats.

type shopView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type categoryView struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	AlternateNames []string `json:"alternate_names"`
}

type producerView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type productView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	ProducerID *int64 `json:"producer_id"`
}

type variantView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ProductID int64  `json:"product_id"`
}

type itemView struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	VariantID     *int64 `json:"variant_id"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
	Date          string `json:"date"`
	TransactionID *int64 `json:"transaction_id"`
	ShopID        *int64 `json:"shop_id"`
}

type itemRecordView struct {
	itemView
	Product  string `json:"product"`
	Category string `json:"category"`
	Variant  string `json:"variant,omitempty"`
	Producer string `json:"producer,omitempty"`
	Shop     string `json:"shop,omitempty"`
}

type transactionView struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	TotalCost string  `json:"total_cost"`
	ShopID    *int64  `json:"shop_id"`
	Note      *string `json:"note"`
}

type transactionDetailsView struct {
	transactionView
	Shop  string           `json:"shop,omitempty"`
	Items []itemRecordView `json:"items"`
}

type dimensionView struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

type bucketView struct {
	Start string `json:"start"`
	Total string `json:"total"`
}

type reportView struct {
	Dimension dimensionView `json:"dimension"`
	Period    string        `json:"period"`
	Buckets   []bucketView  `json:"buckets"`
	Total     string        `json:"total"`
	Average   *string       `json:"average"`
	Median    *string       `json:"median"`
}

type entityTotalView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Total string `json:"total"`
}

type pricePointView struct {
	ItemID    int64  `json:"item_id"`
	Date      string `json:"date"`
	ShopID    *int64 `json:"shop_id"`
	Shop      string `json:"shop,omitempty"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

func moneyPtr(m *core.Money) *string {
	if m == nil {
		return nil
	}
	s := m.String()
	return &s
}

func viewList[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func shopOf(s core.Shop) shopView { return shopView{ID: s.ID, Name: s.Name} }

func categoryOf(c core.Category) categoryView {
	alt := c.AlternateNames
	if alt == nil {
		alt = []string{}
	}
	return categoryView{ID: c.ID, Name: c.Name, AlternateNames: alt}
}

func producerOf(p core.Producer) producerView { return producerView{ID: p.ID, Name: p.Name} }

func productOf(p core.Product) productView {
	return productView{ID: p.ID, Name: p.Name, CategoryID: p.CategoryID, ProducerID: p.ProducerID}
}

func variantOf(v core.Variant) variantView {
	return variantView{ID: v.ID, Name: v.Name, ProductID: v.ProductID}
}

func itemOf(i core.Item, loc *time.Location) itemView {
	return itemView{
		ID:            i.ID,
		ProductID:     i.ProductID,
		VariantID:     i.VariantID,
		Price:         i.Price.String(),
		Quantity:      i.Quantity.String(),
		UnitPrice:     i.UnitPrice().String(),
		Date:          formatTime(i.Date, loc),
		TransactionID: i.TransactionID,
		ShopID:        i.ShopID,
	}
}

func itemRecordOf(rec storage.ItemRecord, loc *time.Location) itemRecordView {
	return itemRecordView{
		itemView: itemOf(rec.Item, loc),
		Product:  rec.ProductName,
		Category: rec.CategoryName,
		Variant:  rec.VariantName,
		Producer: rec.ProducerName,
		Shop:     rec.ShopName,
	}
}

func transactionOf(t core.Transaction, loc *time.Location) transactionView {
	return transactionView{
		ID:        t.ID,
		Date:      formatTime(t.Date, loc),
		TotalCost: t.TotalCost.String(),
		ShopID:    t.ShopID,
		Note:      t.Note,
	}
}

func transactionDetailsOf(d storage.TransactionDetails, loc *time.Location) transactionDetailsView {
	items := make([]itemRecordView, 0, len(d.Items))
	for _, rec := range d.Items {
		items = append(items, itemRecordOf(rec, loc))
	}
	return transactionDetailsView{
		transactionView: transactionOf(d.Transaction, loc),
		Shop:            d.ShopName,
		Items:           items,
	}
}

func dimensionOfView(d core.Dimension) dimensionView {
	return dimensionView{Kind: d.Kind.String(), ID: d.ID}
}

// Day buckets start at UTC midnight, so they are rendered in UTC.
func reportOf(r spending.Report, loc *time.Location) reportView {
	if r.Period == core.Day {
		loc = time.UTC
	}
	buckets := make([]bucketView, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		buckets = append(buckets, bucketView{Start: formatTime(b.Start, loc), Total: b.Total.String()})
	}
	return reportView{
		Dimension: dimensionOfView(r.Dimension),
		Period:    r.Period.String(),
		Buckets:   buckets,
		Total:     r.Total.String(),
		Average:   moneyPtr(r.Average),
		Median:    moneyPtr(r.Median),
	}
}

func entityTotalOf(t core.EntityTotal) entityTotalView {
	return entityTotalView{ID: t.ID, Name: t.Name, Total: t.Total.String()}
}

func pricePointOf(p core.PricePoint, loc *time.Location) pricePointView {
	return pricePointView{
		ItemID:    p.ItemID,
		Date:      formatTime(p.Date, loc),
		ShopID:    p.ShopID,
		Shop:      p.ShopName,
		Price:     p.Price.String(),
		Quantity:  p.Quantity.String(),
		UnitPrice: p.UnitPrice.String(),
	}
}
