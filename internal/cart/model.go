package cart

import "github.com/shopspring/decimal"

// Key identifies a line item: the same product in two sizes is two items.
type Key struct {
	ProductID string
	Size      string
}

// Product is the catalog tuple handed to Add. The store trusts it as given.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageURL string
}

type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

func (it LineItem) Key() Key {
	return Key{ProductID: it.ProductID, Size: it.Size}
}

func (it LineItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Summary is a consistent read of the cart taken under a single lock.
type Summary struct {
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}
