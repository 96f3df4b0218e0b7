// Package store holds the process-wide in-memory snapshot of the four
// backend collections and the operations that keep it synchronised.
//
// The container is not a write-through cache: every mutation goes to the
// backend first and then triggers a full re-read of the owning collection.
// Between the write completing and the refetch completing, the snapshot is
// stale; callers that need the written row must wait for the refetch.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/sales"
)

// Store is the application state container. It is constructed once at
// startup and injected into every handler that reads or mutates shared
// state; there is no package-level instance.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu         sync.RWMutex
	products   []catalog.Product
	categories []catalog.Category
	buyers     []buyers.Buyer
	sales      []sales.Sale
	loading    bool
	lastErr    string

	fetches singleflight.Group

	onSale func(context.Context)
}

// NewStore builds a Store over the given backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// SetSaleHook registers a callback invoked after every successfully recorded
// sale. Used to invalidate downstream read caches. Must be called before the
// store is shared between goroutines.
func (s *Store) SetSaleHook(fn func(context.Context)) {
	s.onSale = fn
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

// finish clears the loading flag and records the error, if any. Failures are
// recorded in the shared error field AND returned to the caller; both
// channels are part of the contract.
func (s *Store) finish(err error) {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
	}
	s.mu.Unlock()
}

// FetchProducts replaces the cached product collection with a fresh
// unfiltered read. On failure the previous snapshot is left untouched.
// Concurrent refetches of the same collection are coalesced.
func (s *Store) FetchProducts(ctx context.Context) error {
	s.begin()
	err := s.fetchProducts(ctx)
	s.finish(err)
	return err
}

func (s *Store) fetchProducts(ctx context.Context) error {
	_, err, _ := s.fetches.Do("products", func() (interface{}, error) {
		return nil, s.reloadProducts(ctx)
	})
	return err
}

// reloadProducts always performs its own select. Post-write refreshes use it
// directly: coalescing them onto a read that started before the write would
// install a snapshot missing the just-written row.
func (s *Store) reloadProducts(ctx context.Context) error {
	list, err := s.backend.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("store: fetch products: %w", err)
	}
	s.mu.Lock()
	s.products = list
	s.mu.Unlock()
	return nil
}

// FetchCategories replaces the cached category collection.
func (s *Store) FetchCategories(ctx context.Context) error {
	s.begin()
	err := s.fetchCategories(ctx)
	s.finish(err)
	return err
}

func (s *Store) fetchCategories(ctx context.Context) error {
	_, err, _ := s.fetches.Do("categories", func() (interface{}, error) {
		return nil, s.reloadCategories(ctx)
	})
	return err
}

func (s *Store) reloadCategories(ctx context.Context) error {
	list, err := s.backend.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("store: fetch categories: %w", err)
	}
	s.mu.Lock()
	s.categories = list
	s.mu.Unlock()
	return nil
}

// FetchBuyers replaces the cached buyer collection.
func (s *Store) FetchBuyers(ctx context.Context) error {
	s.begin()
	err := s.fetchBuyers(ctx)
	s.finish(err)
	return err
}

func (s *Store) fetchBuyers(ctx context.Context) error {
	_, err, _ := s.fetches.Do("buyers", func() (interface{}, error) {
		return nil, s.reloadBuyers(ctx)
	})
	return err
}

func (s *Store) reloadBuyers(ctx context.Context) error {
	list, err := s.backend.ListBuyers(ctx)
	if err != nil {
		return fmt.Errorf("store: fetch buyers: %w", err)
	}
	s.mu.Lock()
	s.buyers = list
	s.mu.Unlock()
	return nil
}

// FetchSales replaces the cached sale collection.
func (s *Store) FetchSales(ctx context.Context) error {
	s.begin()
	err := s.fetchSales(ctx)
	s.finish(err)
	return err
}

func (s *Store) fetchSales(ctx context.Context) error {
	_, err, _ := s.fetches.Do("sales", func() (interface{}, error) {
		return nil, s.reloadSales(ctx)
	})
	return err
}

func (s *Store) reloadSales(ctx context.Context) error {
	list, err := s.backend.ListSales(ctx)
	if err != nil {
		return fmt.Errorf("store: fetch sales: %w", err)
	}
	s.mu.Lock()
	s.sales = list
	s.mu.Unlock()
	return nil
}

// AddProduct inserts a product and resynchronises the product collection.
// The inserted row is not appended locally; it appears once the refetch
// completes.
func (s *Store) AddProduct(ctx context.Context, p catalog.NewProduct) error {
	s.begin()
	err := s.addProduct(ctx, p)
	s.finish(err)
	return err
}

func (s *Store) addProduct(ctx context.Context, p catalog.NewProduct) error {
	if err := s.backend.InsertProduct(ctx, p); err != nil {
		return err
	}
	return s.reloadProducts(ctx)
}

// UpdateProduct applies a partial update and resynchronises the product
// collection. There is no local merge of the patch before the refetch.
func (s *Store) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error {
	s.begin()
	err := s.updateProduct(ctx, id, patch)
	s.finish(err)
	return err
}

func (s *Store) updateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error {
	if err := s.backend.UpdateProduct(ctx, id, patch); err != nil {
		return err
	}
	return s.reloadProducts(ctx)
}

// AddCategory inserts a category and resynchronises the category
// collection. Name emptiness is the caller's responsibility. Two calls with
// the same name produce two rows.
func (s *Store) AddCategory(ctx context.Context, name string) error {
	s.begin()
	err := s.addCategory(ctx, name)
	s.finish(err)
	return err
}

func (s *Store) addCategory(ctx context.Context, name string) error {
	if err := s.backend.InsertCategory(ctx, name); err != nil {
		return err
	}
	return s.reloadCategories(ctx)
}

// AddBuyer inserts a buyer and resynchronises the buyer collection.
func (s *Store) AddBuyer(ctx context.Context, b buyers.NewBuyer) error {
	s.begin()
	err := s.addBuyer(ctx, b)
	s.finish(err)
	return err
}

func (s *Store) addBuyer(ctx context.Context, b buyers.NewBuyer) error {
	if err := s.backend.InsertBuyer(ctx, b); err != nil {
		return err
	}
	return s.reloadBuyers(ctx)
}

// AddSale records a sale, decrements the sold product's stock through the
// backend's atomic conditional decrement, and resynchronises the product
// collection. A decrement failure after a successful insert leaves the sale
// recorded without the stock adjustment; the inconsistency is surfaced but
// not rolled back.
func (s *Store) AddSale(ctx context.Context, sale sales.NewSale) error {
	s.begin()
	err := s.addSale(ctx, sale)
	s.finish(err)
	return err
}

func (s *Store) addSale(ctx context.Context, sale sales.NewSale) error {
	if err := s.backend.InsertSale(ctx, sale); err != nil {
		return err
	}
	if s.onSale != nil {
		s.onSale(ctx)
	}
	if err := s.backend.DecrementStock(ctx, sale.ProductID, sale.Quantity); err != nil {
		s.logger.Error("stock decrement failed after sale insert",
			slog.Int64("product_id", sale.ProductID),
			slog.Int("quantity", sale.Quantity),
			slog.Any("error", err))
		return fmt.Errorf("store: sale recorded but stock not adjusted: %w", err)
	}
	return s.reloadProducts(ctx)
}

// Products returns a copy of the cached product collection.
func (s *Store) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Categories returns a copy of the cached category collection.
func (s *Store) Categories() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Buyers returns a copy of the cached buyer collection.
func (s *Store) Buyers() []buyers.Buyer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]buyers.Buyer, len(s.buyers))
	copy(out, s.buyers)
	return out
}

// Sales returns a copy of the cached sale collection.
func (s *Store) Sales() []sales.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sales.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

// ProductByBarcode looks a product up in the current snapshot. The snapshot
// is only as fresh as the last fetch.
func (s *Store) ProductByBarcode(barcode string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Barcode == barcode {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// ProductByID looks a product up in the current snapshot.
func (s *Store) ProductByID(id int64) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Loading reports whether an operation is in flight. The flag is shared by
// all operations; interleaved operations overwrite each other's state.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message of the most recent failed operation, or the
// empty string when none has failed yet.
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
