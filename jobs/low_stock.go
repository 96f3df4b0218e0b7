package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/retailpoint/retailpoint/internal/catalog"
)

// LowStockScanJob walks the product table and logs every product at or
// below the restock threshold. The log lines are the restock signal; there
// is no paging or email delivery behind this job.
type LowStockScanJob struct {
	Products  catalog.ProductRepository
	Threshold int
	Logger    *slog.Logger
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(products catalog.ProductRepository, threshold int, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Products: products, Threshold: threshold, Logger: logger}
}

// Handle processes low-stock scan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Products == nil {
		return errors.New("low stock scan: handler not configured")
	}

	logger := j.logger()
	low, err := j.Products.ListLowStock(ctx, j.Threshold)
	if err != nil {
		logger.Error("low stock scan failed", slog.Any("error", err))
		return err
	}

	for _, product := range low {
		logger.Warn("product low on stock",
			slog.Int64("product_id", product.ID),
			slog.String("barcode", product.Barcode),
			slog.String("name", product.Name),
			slog.Int("quantity", product.Quantity),
			slog.Int("threshold", j.Threshold))
	}
	logger.Info("completed low stock scan", slog.Int("flagged", len(low)))
	return nil
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}
