package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single mutable item container per identity. The row persists
// across checkouts; only its items are deleted.
type Cart struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"-"`
	SessionID *string    `json:"-"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// Total is the live sum of item subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the sum of item quantities.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// CartItem is either catalog-backed (ProductID set, price read live from the
// product) or custom (CustomPrice frozen at creation). Exactly one of the two
// is populated.
type CartItem struct {
	ID          int64            `json:"id"`
	CartID      int64            `json:"-"`
	ProductID   *int64           `json:"product_id"`
	Product     *Product         `json:"-"`
	Quantity    int              `json:"quantity"`
	Notes       *string          `json:"notes"`
	CustomName  *string          `json:"-"`
	CustomPrice *decimal.Decimal `json:"-"`
	CustomImage *string          `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
}

// UnitPrice is the live product price for catalog items, or the frozen
// custom price otherwise.
func (i CartItem) UnitPrice() decimal.Decimal {
	if i.ProductID != nil && i.Product != nil {
		return i.Product.Price
	}
	if i.CustomPrice != nil {
		return *i.CustomPrice
	}
	return decimal.Zero
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// DisplayName is the product name, the custom name, or a fallback label.
func (i CartItem) DisplayName() string {
	if i.ProductID != nil && i.Product != nil {
		return i.Product.Name
	}
	if i.CustomName != nil && *i.CustomName != "" {
		return *i.CustomName
	}
	return "Torta personalizada"
}

// Image is the product main image for catalog items, the custom image
// otherwise.
func (i CartItem) Image() *string {
	if i.ProductID != nil && i.Product != nil {
		return i.Product.MainImage
	}
	return i.CustomImage
}
