package sales

import "time"

// Sale is one sold line item. Sales are append-only: once recorded they are
// never updated or deleted.
type Sale struct {
	ID         int64     `json:"id"`
	BuyerID    int64     `json:"buyer_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSale carries the caller-supplied fields before the backend assigns id
// and created_at. TotalPrice is computed by the caller from the price
// captured at cart time, not re-read from the backend.
type NewSale struct {
	BuyerID    int64     `json:"buyer_id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"total_price"`
	Date       time.Time `json:"date"`
}

// SaleDetail is the read-side join of a sale with the names presentation
// needs, produced in one round trip.
type SaleDetail struct {
	Sale
	ProductName  string `json:"product_name"`
	CategoryName string `json:"category_name"`
	BuyerName    string `json:"buyer_name"`
}

// Filter narrows read-side queries. A zero Since means no lower bound.
type Filter struct {
	Since      time.Time
	CategoryID *int64
	BuyerID    *int64
}

// DayRevenue aggregates revenue for one calendar day.
type DayRevenue struct {
	Day     time.Time `json:"day"`
	Revenue float64   `json:"revenue"`
	Count   int       `json:"count"`
}

// CategoryRevenue aggregates revenue per category.
type CategoryRevenue struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Revenue      float64 `json:"revenue"`
	Count        int     `json:"count"`
}

// ProductRevenue aggregates revenue and units per product.
type ProductRevenue struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Units       int     `json:"units"`
	Revenue     float64 `json:"revenue"`
}
