package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/platform/httpx"
	"github.com/retailpoint/retailpoint/internal/sales"
)

type fakeBackend struct {
	mu         sync.Mutex
	products   []catalog.Product
	categories []catalog.Category
	buyers     []buyers.Buyer
	sales      []sales.Sale
	nextID     int64

	listProductsErr error
	insertSaleErr   error

	listGate      chan struct{}
	listGateEntry chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{}
}

func (f *fakeBackend) assignID() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	gate, entry := f.listGate, f.listGateEntry
	f.listGate, f.listGateEntry = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(entry)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listProductsErr != nil {
		return nil, f.listProductsErr
	}
	out := make([]catalog.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeBackend) InsertProduct(ctx context.Context, p catalog.NewProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.Barcode == p.Barcode {
			return fmt.Errorf("barcode %s: %w", p.Barcode, httpx.ErrDuplicateBarcode)
		}
	}
	f.products = append(f.products, catalog.Product{
		ID:         f.assignID(),
		Barcode:    p.Barcode,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Quantity:   p.Quantity,
		Price:      p.Price,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (f *fakeBackend) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID != id {
			continue
		}
		if patch.Barcode != nil {
			p.Barcode = *patch.Barcode
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.CategoryID != nil {
			p.CategoryID = *patch.CategoryID
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		f.products[i] = p
		return nil
	}
	return httpx.ErrNotFound
}

func (f *fakeBackend) DecrementStock(ctx context.Context, productID int64, by int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID != productID {
			continue
		}
		if p.Quantity < by {
			return fmt.Errorf("product %d: %w", productID, httpx.ErrInsufficientStock)
		}
		f.products[i].Quantity -= by
		return nil
	}
	return httpx.ErrNotFound
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Category, len(f.categories))
	copy(out, f.categories)
	return out, nil
}

func (f *fakeBackend) InsertCategory(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, catalog.Category{ID: f.assignID(), Name: name, CreatedAt: time.Now()})
	return nil
}

func (f *fakeBackend) ListBuyers(ctx context.Context) ([]buyers.Buyer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]buyers.Buyer, len(f.buyers))
	copy(out, f.buyers)
	return out, nil
}

func (f *fakeBackend) InsertBuyer(ctx context.Context, b buyers.NewBuyer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyers = append(f.buyers, buyers.Buyer{ID: f.assignID(), Name: b.Name, PassportData: b.PassportData, CreatedAt: time.Now()})
	return nil
}

func (f *fakeBackend) ListSales(ctx context.Context) ([]sales.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sales.Sale, len(f.sales))
	copy(out, f.sales)
	return out, nil
}

func (f *fakeBackend) InsertSale(ctx context.Context, s sales.NewSale) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertSaleErr != nil {
		return f.insertSaleErr
	}
	f.sales = append(f.sales, sales.Sale{
		ID:         f.assignID(),
		BuyerID:    s.BuyerID,
		ProductID:  s.ProductID,
		Quantity:   s.Quantity,
		TotalPrice: s.TotalPrice,
		Date:       s.Date,
		CreatedAt:  time.Now(),
	})
	return nil
}

func seedProduct(t *testing.T, st *Store, barcode string, qty int, price float64) catalog.Product {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.AddProduct(ctx, catalog.NewProduct{Barcode: barcode, Name: "Item " + barcode, CategoryID: 1, Quantity: qty, Price: price}))
	p, ok := st.ProductByBarcode(barcode)
	require.True(t, ok)
	return p
}

func TestFetchReplacesCollectionWholesale(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	require.NoError(t, backend.InsertProduct(ctx, catalog.NewProduct{Barcode: "100", Name: "Milk", CategoryID: 1, Quantity: 5, Price: 2.50}))
	require.NoError(t, st.FetchProducts(ctx))
	require.Len(t, st.Products(), 1)

	require.NoError(t, backend.InsertProduct(ctx, catalog.NewProduct{Barcode: "101", Name: "Bread", CategoryID: 1, Quantity: 3, Price: 1.20}))
	require.Len(t, st.Products(), 1, "snapshot must not change before the next fetch")

	require.NoError(t, st.FetchProducts(ctx))
	require.Len(t, st.Products(), 2)
	require.False(t, st.Loading())
}

func TestFetchFailureKeepsPriorSnapshot(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	require.NoError(t, backend.InsertProduct(ctx, catalog.NewProduct{Barcode: "100", Name: "Milk", CategoryID: 1, Quantity: 5, Price: 2.50}))
	require.NoError(t, st.FetchProducts(ctx))

	backend.mu.Lock()
	backend.listProductsErr = errors.New("connection refused")
	backend.mu.Unlock()

	err := st.FetchProducts(ctx)
	require.Error(t, err)
	require.Len(t, st.Products(), 1, "failed fetch must leave the snapshot untouched")
	require.Contains(t, st.LastError(), "connection refused")
	require.False(t, st.Loading())
}

func TestAddProductAppearsAfterRefetch(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	input := catalog.NewProduct{Barcode: "4601234567890", Name: "Coffee", CategoryID: 2, Quantity: 12, Price: 8.90}
	require.NoError(t, st.AddProduct(ctx, input))

	products := st.Products()
	require.Len(t, products, 1)
	got := products[0]
	require.NotZero(t, got.ID, "id is backend-assigned")
	require.Equal(t, input.Barcode, got.Barcode)
	require.Equal(t, input.Name, got.Name)
	require.Equal(t, input.CategoryID, got.CategoryID)
	require.Equal(t, input.Quantity, got.Quantity)
	require.Equal(t, input.Price, got.Price)
	require.False(t, got.CreatedAt.IsZero())
}

func TestAddProductDuplicateSurfacesOnBothChannels(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	seedProduct(t, st, "200", 1, 1.00)

	err := st.AddProduct(ctx, catalog.NewProduct{Barcode: "200", Name: "Copy", CategoryID: 1, Quantity: 1, Price: 1.00})
	require.ErrorIs(t, err, httpx.ErrDuplicateBarcode)
	require.Contains(t, st.LastError(), "duplicate barcode")
	require.Len(t, st.Products(), 1)
}

func TestUpdateProductTouchesOnlyNamedFields(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	p := seedProduct(t, st, "300", 7, 4.00)

	newPrice := 4.50
	require.NoError(t, st.UpdateProduct(ctx, p.ID, catalog.ProductPatch{Price: &newPrice}))

	got, ok := st.ProductByID(p.ID)
	require.True(t, ok)
	require.Equal(t, 4.50, got.Price)
	require.Equal(t, p.Barcode, got.Barcode)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, p.CategoryID, got.CategoryID)
	require.Equal(t, p.Quantity, got.Quantity)
}

func TestAddCategoryIsNotIdempotent(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	require.NoError(t, st.AddCategory(ctx, "Dairy"))
	require.NoError(t, st.AddCategory(ctx, "Dairy"))

	cats := st.Categories()
	require.Len(t, cats, 2, "two inserts with the same name create two rows")
	require.Equal(t, cats[0].Name, cats[1].Name)
	require.NotEqual(t, cats[0].ID, cats[1].ID)
}

func TestAddSaleDecrementsStockAndRefetches(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	p := seedProduct(t, st, "400", 10, 3.00)

	sale := sales.NewSale{BuyerID: 1, ProductID: p.ID, Quantity: 4, TotalPrice: 12.00, Date: time.Now()}
	require.NoError(t, st.AddSale(ctx, sale))

	got, ok := st.ProductByID(p.ID)
	require.True(t, ok)
	require.Equal(t, 6, got.Quantity)
	require.Len(t, backend.sales, 1)
}

func TestAddSaleInsufficientStockLeavesSaleRecorded(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	p := seedProduct(t, st, "500", 2, 5.00)

	sale := sales.NewSale{BuyerID: 1, ProductID: p.ID, Quantity: 3, TotalPrice: 15.00, Date: time.Now()}
	err := st.AddSale(ctx, sale)
	require.ErrorIs(t, err, httpx.ErrInsufficientStock)

	// The insert succeeded and is not rolled back; only the decrement failed.
	require.Len(t, backend.sales, 1)
	got, ok := st.ProductByID(p.ID)
	require.True(t, ok)
	require.Equal(t, 2, got.Quantity, "quantity unchanged when the conditional decrement refuses")
	require.NotEmpty(t, st.LastError())
}

func TestAddSaleInsertFailureSkipsDecrement(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	p := seedProduct(t, st, "600", 5, 2.00)

	backend.mu.Lock()
	backend.insertSaleErr = errors.New("server unavailable")
	backend.mu.Unlock()

	err := st.AddSale(ctx, sales.NewSale{BuyerID: 1, ProductID: p.ID, Quantity: 1, TotalPrice: 2.00, Date: time.Now()})
	require.Error(t, err)

	got, _ := st.ProductByID(p.ID)
	require.Equal(t, 5, got.Quantity)
	require.Empty(t, backend.sales)
}

func TestSaleHookFiresOnRecordedSale(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	var fired int
	st.SetSaleHook(func(context.Context) { fired++ })

	p := seedProduct(t, st, "700", 5, 2.00)
	require.NoError(t, st.AddSale(ctx, sales.NewSale{BuyerID: 1, ProductID: p.ID, Quantity: 1, TotalPrice: 2.00, Date: time.Now()}))
	require.Equal(t, 1, fired)

	backend.mu.Lock()
	backend.insertSaleErr = errors.New("down")
	backend.mu.Unlock()
	_ = st.AddSale(ctx, sales.NewSale{BuyerID: 1, ProductID: p.ID, Quantity: 1, TotalPrice: 2.00, Date: time.Now()})
	require.Equal(t, 1, fired, "hook must not fire when the insert fails")
}

func TestAddProductRefetchSkipsInFlightRead(t *testing.T) {
	backend := newFakeBackend()
	st := NewStore(backend, nil)
	ctx := context.Background()

	gate := make(chan struct{})
	entry := make(chan struct{})
	backend.mu.Lock()
	backend.listGate, backend.listGateEntry = gate, entry
	backend.mu.Unlock()

	fetchDone := make(chan error, 1)
	go func() { fetchDone <- st.FetchProducts(ctx) }()
	<-entry

	// The read is parked inside the backend. A write landing now must see
	// its row after the refresh, not the parked read's pre-insert result.
	require.NoError(t, st.AddProduct(ctx, catalog.NewProduct{Barcode: "900", Name: "Oat Bar", CategoryID: 1, Quantity: 4, Price: 1.10}))
	created, ok := st.ProductByBarcode("900")
	require.True(t, ok, "inserted product must be visible once AddProduct returns")
	require.Equal(t, "Oat Bar", created.Name)

	close(gate)
	require.NoError(t, <-fetchDone)
}
