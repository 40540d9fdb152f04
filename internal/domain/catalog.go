package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a catalog entry snapshotted onto a ticket, invoice or quote.
type LineItem struct {
	CatalogID string          `json:"catalogId"`
	Name      string          `json:"name"`
	Kind      ItemKind        `json:"kind"`
	Price     decimal.Decimal `json:"price"`
	GSTRate   decimal.Decimal `json:"gstRate"`
}

// CatalogItem is a part or service in the shared inventory catalog.
type CatalogItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Kind      ItemKind        `json:"kind"`
	Price     decimal.Decimal `json:"price"`
	GSTRate   decimal.Decimal `json:"gstRate"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	Revision
}

// LineItem snapshots the catalog entry.
func (c CatalogItem) LineItem() LineItem {
	return LineItem{
		CatalogID: c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Price:     c.Price,
		GSTRate:   c.GSTRate,
	}
}

// SumPrices adds up item prices.
func SumPrices(items ...[]LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, group := range items {
		for _, item := range group {
			total = total.Add(item.Price)
		}
	}
	return total
}

// SumTax adds up price * gstRate / 100 over the items, rounded to 2 places.
func SumTax(items ...[]LineItem) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	tax := decimal.Zero
	for _, group := range items {
		for _, item := range group {
			tax = tax.Add(item.Price.Mul(item.GSTRate).Div(hundred))
		}
	}
	return tax.Round(2)
}
