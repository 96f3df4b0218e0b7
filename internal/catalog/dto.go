package catalog

// AddProductRequest is the add-product form payload.
type AddProductRequest struct {
	Barcode    string  `json:"barcode" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	CategoryID int64   `json:"category_id" validate:"required,gt=0"`
	Quantity   int     `json:"quantity" validate:"gte=0"`
	Price      float64 `json:"price" validate:"gte=0"`
}

// UpdateProductRequest is the partial-update payload. Absent fields are not
// touched.
type UpdateProductRequest struct {
	Barcode    *string  `json:"barcode,omitempty" validate:"omitempty,min=1"`
	Name       *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	CategoryID *int64   `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Quantity   *int     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Price      *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

// Patch converts the request into the repository patch shape.
func (r UpdateProductRequest) Patch() ProductPatch {
	return ProductPatch{
		Barcode:    r.Barcode,
		Name:       r.Name,
		CategoryID: r.CategoryID,
		Quantity:   r.Quantity,
		Price:      r.Price,
	}
}

// AddCategoryRequest is the add-category form payload.
type AddCategoryRequest struct {
	Name string `json:"name" validate:"required"`
}

// InventoryLine is one row of the stock listing.
type InventoryLine struct {
	Product
	CategoryName string  `json:"category_name"`
	StockValue   float64 `json:"stock_value"`
	LowStock     bool    `json:"low_stock"`
}

// InventoryView is the stock listing with its grand total.
type InventoryView struct {
	Lines      []InventoryLine `json:"lines"`
	TotalValue float64         `json:"total_value"`
}
