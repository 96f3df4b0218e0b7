// Package pricing implements bulk price maintenance and the recurring
// automatic price increase.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/retailpoint/retailpoint/internal/catalog"
)

// Catalog is the slice of the state container pricing operates on: snapshot
// reads plus the partial product update.
type Catalog interface {
	FetchProducts(ctx context.Context) error
	Products() []catalog.Product
	ProductByID(id int64) (catalog.Product, bool)
	UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error
}

// Service applies price changes to selected products, one update per
// product, strictly in sequence.
type Service struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewService builds a pricing Service.
func NewService(cat Catalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: cat, logger: logger}
}

// SetPrice writes the same price to every selected product.
func (s *Service) SetPrice(ctx context.Context, ids []int64, price float64) error {
	if price < 0 {
		return fmt.Errorf("pricing: price must not be negative")
	}
	rounded := Round(price)
	for _, id := range ids {
		patch := catalog.ProductPatch{Price: &rounded}
		if err := s.catalog.UpdateProduct(ctx, id, patch); err != nil {
			return fmt.Errorf("pricing: set price for product %d: %w", id, err)
		}
	}
	return nil
}

// IncreaseByPercent multiplies each selected product's cached price by
// (1 + pct/100), rounded to two decimal places.
func (s *Service) IncreaseByPercent(ctx context.Context, ids []int64, pct float64) error {
	if pct < 0 {
		return fmt.Errorf("pricing: percentage must not be negative")
	}
	multiplier := 1 + pct/100
	for _, id := range ids {
		product, ok := s.catalog.ProductByID(id)
		if !ok {
			s.logger.Warn("price increase skipped, product not in snapshot", slog.Int64("product_id", id))
			continue
		}
		price := Round(product.Price * multiplier)
		patch := catalog.ProductPatch{Price: &price}
		if err := s.catalog.UpdateProduct(ctx, id, patch); err != nil {
			return fmt.Errorf("pricing: increase price for product %d: %w", id, err)
		}
	}
	return nil
}

// Round normalises a price to two decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
