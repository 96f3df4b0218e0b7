package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/retailpoint/retailpoint/internal/catalog"
)

// AutoRepricer is a recurring timed price increase with explicit start and
// stop. While enabled, every interval it multiplies every cached product's
// price by (1 + pct/100). Stop guarantees no tick fires afterwards; a
// repricer left running would keep mutating backend prices with nobody
// watching.
type AutoRepricer struct {
	catalog  Catalog
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	pct     float64
	cancel  context.CancelFunc
	done    chan struct{}
	enabled bool
}

// NewAutoRepricer builds a repricer ticking at the given interval.
func NewAutoRepricer(cat Catalog, logger *slog.Logger, interval time.Duration) *AutoRepricer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &AutoRepricer{catalog: cat, logger: logger, interval: interval}
}

// Start enables the recurring increase at the given percentage. Calling
// Start while running restarts the schedule with the new percentage. The
// previous run is cancelled and waited for under the same lock that installs
// the new one, so no run goroutine can be orphaned by concurrent toggles.
func (r *AutoRepricer) Start(pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.pct = pct
	r.enabled = true
	go r.run(ctx, pct, r.done)

	r.logger.Info("auto price increase enabled",
		slog.Float64("percent", pct),
		slog.Duration("interval", r.interval))
}

// Stop disables the recurring increase and waits for an in-progress pass to
// finish. Safe to call when not running.
func (r *AutoRepricer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// stopLocked cancels the current run and waits for it to exit. The run
// goroutine never takes r.mu, so blocking on done under the lock cannot
// deadlock.
func (r *AutoRepricer) stopLocked() {
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.enabled = false

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("auto price increase disabled")
}

// Enabled reports the current toggle state and percentage.
func (r *AutoRepricer) Enabled() (bool, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled, r.pct
}

// Interval returns the configured tick interval.
func (r *AutoRepricer) Interval() time.Duration {
	return r.interval
}

func (r *AutoRepricer) run(ctx context.Context, pct float64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.applyOnce(ctx, pct)
		}
	}
}

func (r *AutoRepricer) applyOnce(ctx context.Context, pct float64) {
	multiplier := 1 + pct/100
	products := r.catalog.Products()
	for _, product := range products {
		if ctx.Err() != nil {
			return
		}
		price := Round(product.Price * multiplier)
		patch := catalog.ProductPatch{Price: &price}
		if err := r.catalog.UpdateProduct(ctx, product.ID, patch); err != nil {
			r.logger.Error("auto price increase failed",
				slog.Int64("product_id", product.ID),
				slog.Any("error", err))
		}
	}
	r.logger.Info("auto price increase pass complete",
		slog.Float64("percent", pct),
		slog.Int("products", len(products)))
}
