package catalog

import "time"

// Product is a sellable item tracked in stock.
type Product struct {
	ID         int64     `json:"id"`
	Barcode    string    `json:"barcode"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProduct carries the caller-supplied fields of a product before the
// backend assigns id and created_at.
type NewProduct struct {
	Barcode    string  `json:"barcode"`
	Name       string  `json:"name"`
	CategoryID int64   `json:"category_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// ProductPatch names the subset of product fields to update. Nil fields are
// left untouched.
type ProductPatch struct {
	Barcode    *string  `json:"barcode,omitempty"`
	Name       *string  `json:"name,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
	Quantity   *int     `json:"quantity,omitempty"`
	Price      *float64 `json:"price,omitempty"`
}

// Empty reports whether the patch names no fields at all.
func (p ProductPatch) Empty() bool {
	return p.Barcode == nil && p.Name == nil && p.CategoryID == nil && p.Quantity == nil && p.Price == nil
}

// Category groups products.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
