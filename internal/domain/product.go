package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Cart items referencing a product read its
// price live; order items freeze a snapshot at checkout.
type Product struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	MainImage   *string         `json:"main_image"`
	Images      []ProductImage  `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"-"`
	URL       string `json:"url"`
	IsMain    bool   `json:"is_main"`
	SortOrder int    `json:"sort_order"`
}
