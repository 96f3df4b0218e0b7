// Package checkout implements the point-of-sale cart flow: barcode scans
// accumulate line items in a session-scoped cart that is not persisted until
// commit.
package checkout

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TaxRate is the fixed surcharge applied to the subtotal for display only.
// It is never persisted as a separate field.
const TaxRate = 0.20

// Line is one pending sale line. UnitPrice is captured at scan time; commit
// uses this captured price, not a fresh read.
type Line struct {
	ProductID int64   `json:"product_id"`
	Barcode   string  `json:"barcode"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Totals summarises a cart for display.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Cart is a session-scoped, in-memory list of pending sale lines.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
}

// Totals computes subtotal, tax and total from the captured line prices.
func (c Cart) Totals() Totals {
	var subtotal float64
	for _, line := range c.Lines {
		subtotal += line.UnitPrice * float64(line.Quantity)
	}
	tax := round2(subtotal * TaxRate)
	return Totals{
		Subtotal: round2(subtotal),
		Tax:      tax,
		Total:    round2(subtotal) + tax,
	}
}

func (c Cart) clone() Cart {
	out := c
	out.Lines = make([]Line, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
