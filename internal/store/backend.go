package store

import (
	"context"

	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/sales"
)

// Backend is the remote store the container synchronises against. It is the
// seam that isolates the refetch-after-write strategy: a future optimistic
// merge only touches the Store, not its callers.
type Backend interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	InsertProduct(ctx context.Context, p catalog.NewProduct) error
	UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error
	// DecrementStock is an atomic conditional decrement executed at the
	// backend: quantity goes down by the given amount only when at least
	// that much is available.
	DecrementStock(ctx context.Context, productID int64, by int) error

	ListCategories(ctx context.Context) ([]catalog.Category, error)
	InsertCategory(ctx context.Context, name string) error

	ListBuyers(ctx context.Context) ([]buyers.Buyer, error)
	InsertBuyer(ctx context.Context, b buyers.NewBuyer) error

	ListSales(ctx context.Context) ([]sales.Sale, error)
	InsertSale(ctx context.Context, s sales.NewSale) error
}

type pgBackend struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	buyers     buyers.Repository
	sales      sales.Repository
}

// NewBackend assembles a Backend from the per-collection repositories.
func NewBackend(
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	buyerRepo buyers.Repository,
	saleRepo sales.Repository,
) Backend {
	return &pgBackend{
		products:   products,
		categories: categories,
		buyers:     buyerRepo,
		sales:      saleRepo,
	}
}

func (b *pgBackend) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return b.products.List(ctx)
}

func (b *pgBackend) InsertProduct(ctx context.Context, p catalog.NewProduct) error {
	return b.products.Insert(ctx, p)
}

func (b *pgBackend) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error {
	return b.products.Update(ctx, id, patch)
}

func (b *pgBackend) DecrementStock(ctx context.Context, productID int64, by int) error {
	return b.products.DecrementQuantity(ctx, productID, by)
}

func (b *pgBackend) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return b.categories.List(ctx)
}

func (b *pgBackend) InsertCategory(ctx context.Context, name string) error {
	return b.categories.Insert(ctx, name)
}

func (b *pgBackend) ListBuyers(ctx context.Context) ([]buyers.Buyer, error) {
	return b.buyers.List(ctx)
}

func (b *pgBackend) InsertBuyer(ctx context.Context, nb buyers.NewBuyer) error {
	return b.buyers.Insert(ctx, nb)
}

func (b *pgBackend) ListSales(ctx context.Context) ([]sales.Sale, error) {
	return b.sales.List(ctx)
}

func (b *pgBackend) InsertSale(ctx context.Context, s sales.NewSale) error {
	return b.sales.Insert(ctx, s)
}
