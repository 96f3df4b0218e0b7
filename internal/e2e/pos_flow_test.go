package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/retailpoint/retailpoint/internal/analytics"
	analytichttp "github.com/retailpoint/retailpoint/internal/analytics/http"
	"github.com/retailpoint/retailpoint/internal/app"
	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/checkout"
	"github.com/retailpoint/retailpoint/internal/observability"
	"github.com/retailpoint/retailpoint/internal/platform/httpx"
	"github.com/retailpoint/retailpoint/internal/pricing"
	"github.com/retailpoint/retailpoint/internal/sales"
	"github.com/retailpoint/retailpoint/internal/store"

	_ "github.com/retailpoint/retailpoint/internal/testing/guard"
)

// memBackend is an in-memory stand-in for the hosted Postgres backend. It
// also serves the analytics queries so the whole HTTP surface can be
// exercised in one process.
type memBackend struct {
	mu         sync.Mutex
	nextID     int64
	products   []catalog.Product
	categories []catalog.Category
	buyerRows  []buyers.Buyer
	saleRows   []sales.Sale
}

func newMemBackend() *memBackend {
	return &memBackend{nextID: 1}
}

func (b *memBackend) id() int64 {
	id := b.nextID
	b.nextID++
	return id
}

func (b *memBackend) ListProducts(context.Context) ([]catalog.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]catalog.Product(nil), b.products...), nil
}

func (b *memBackend) InsertProduct(_ context.Context, p catalog.NewProduct) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.products {
		if existing.Barcode == p.Barcode {
			return httpx.ErrDuplicateBarcode
		}
	}
	b.products = append(b.products, catalog.Product{
		ID: b.id(), Barcode: p.Barcode, Name: p.Name,
		CategoryID: p.CategoryID, Quantity: p.Quantity, Price: p.Price,
		CreatedAt: time.Now(),
	})
	return nil
}

func (b *memBackend) UpdateProduct(_ context.Context, id int64, patch catalog.ProductPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID != id {
			continue
		}
		if patch.Name != nil {
			b.products[i].Name = *patch.Name
		}
		if patch.Quantity != nil {
			b.products[i].Quantity = *patch.Quantity
		}
		if patch.Price != nil {
			b.products[i].Price = *patch.Price
		}
		return nil
	}
	return httpx.ErrNotFound
}

func (b *memBackend) DecrementStock(_ context.Context, productID int64, by int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID != productID {
			continue
		}
		if b.products[i].Quantity < by {
			return httpx.ErrInsufficientStock
		}
		b.products[i].Quantity -= by
		return nil
	}
	return httpx.ErrNotFound
}

func (b *memBackend) ListCategories(context.Context) ([]catalog.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]catalog.Category(nil), b.categories...), nil
}

func (b *memBackend) InsertCategory(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories = append(b.categories, catalog.Category{ID: b.id(), Name: name, CreatedAt: time.Now()})
	return nil
}

func (b *memBackend) ListBuyers(context.Context) ([]buyers.Buyer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]buyers.Buyer(nil), b.buyerRows...), nil
}

func (b *memBackend) InsertBuyer(_ context.Context, nb buyers.NewBuyer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buyerRows = append(b.buyerRows, buyers.Buyer{ID: b.id(), Name: nb.Name, PassportData: nb.PassportData, CreatedAt: time.Now()})
	return nil
}

func (b *memBackend) ListSales(context.Context) ([]sales.Sale, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sales.Sale(nil), b.saleRows...), nil
}

func (b *memBackend) InsertSale(_ context.Context, s sales.NewSale) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saleRows = append(b.saleRows, sales.Sale{
		ID: b.id(), BuyerID: s.BuyerID, ProductID: s.ProductID,
		Quantity: s.Quantity, TotalPrice: s.TotalPrice, Date: s.Date, CreatedAt: time.Now(),
	})
	return nil
}

func (b *memBackend) ListDetailed(_ context.Context, f sales.Filter) ([]sales.SaleDetail, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]sales.SaleDetail, 0, len(b.saleRows))
	for _, s := range b.saleRows {
		if !f.Since.IsZero() && s.Date.Before(f.Since) {
			continue
		}
		out = append(out, sales.SaleDetail{Sale: s})
	}
	return out, nil
}

func (b *memBackend) RevenueByDay(_ context.Context, f sales.Filter) ([]sales.DayRevenue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	byDay := make(map[time.Time]*sales.DayRevenue)
	for _, s := range b.saleRows {
		if !f.Since.IsZero() && s.Date.Before(f.Since) {
			continue
		}
		day := s.Date.Truncate(24 * time.Hour)
		entry, ok := byDay[day]
		if !ok {
			entry = &sales.DayRevenue{Day: day}
			byDay[day] = entry
		}
		entry.Revenue += s.TotalPrice
		entry.Count++
	}
	out := make([]sales.DayRevenue, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	return out, nil
}

func (b *memBackend) RevenueByCategory(context.Context, sales.Filter) ([]sales.CategoryRevenue, error) {
	return nil, nil
}

func (b *memBackend) TopProducts(context.Context, sales.Filter, int) ([]sales.ProductRevenue, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memBackend) {
	t.Helper()

	backend := newMemBackend()
	logger := slog.Default()
	st := store.NewStore(backend, logger)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	analyticsCache := analytics.NewCache(redisClient, time.Minute)
	analyticsService := analytics.NewService(backend, analyticsCache)
	st.SetSaleHook(func(ctx context.Context) {
		_ = analyticsCache.Bump(ctx)
	})

	manager := checkout.NewManager(st, logger)
	pricingService := pricing.NewService(st, logger)
	repricer := pricing.NewAutoRepricer(st, logger, time.Hour)
	t.Cleanup(repricer.Stop)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           &app.Config{AppEnv: "test"},
		CatalogHandler:   catalog.NewHandler(logger, st, 10),
		BuyersHandler:    buyers.NewHandler(logger, st),
		CheckoutHandler:  checkout.NewHandler(logger, manager),
		PricingHandler:   pricing.NewHandler(logger, pricingService, repricer),
		AnalyticsHandler: analytichttp.NewHandler(logger, analyticsService),
		Metrics:          observability.NewMetrics(),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, backend
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestPointOfSaleFlow(t *testing.T) {
	server, backend := newTestServer(t)

	resp := postJSON(t, server.URL+"/categories", map[string]any{"name": "Beverages"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var categoriesResp struct {
		Categories []catalog.Category `json:"categories"`
	}
	getResp, err := http.Get(server.URL + "/categories")
	require.NoError(t, err)
	decodeBody(t, getResp, &categoriesResp)
	require.Len(t, categoriesResp.Categories, 1)
	categoryID := categoriesResp.Categories[0].ID

	resp = postJSON(t, server.URL+"/products", map[string]any{
		"barcode": "4600000000017", "name": "Sparkling Water",
		"category_id": categoryID, "quantity": 10, "price": 1.50,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created catalog.Product
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)

	// Same barcode again is rejected against the snapshot.
	resp = postJSON(t, server.URL+"/products", map[string]any{
		"barcode": "4600000000017", "name": "Duplicate",
		"category_id": categoryID, "quantity": 1, "price": 1,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/buyers", map[string]any{"name": "Alice Novak", "passport_data": "AB1234567"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var buyersResp struct {
		Buyers []buyers.Buyer `json:"buyers"`
	}
	getResp, err = http.Get(server.URL + "/buyers")
	require.NoError(t, err)
	decodeBody(t, getResp, &buyersResp)
	require.Len(t, buyersResp.Buyers, 1)
	buyerID := buyersResp.Buyers[0].ID

	var session struct {
		SessionID string `json:"session_id"`
	}
	resp = postJSON(t, server.URL+"/checkout/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &session)

	sessionURL := server.URL + "/checkout/sessions/" + session.SessionID
	for i := 0; i < 2; i++ {
		resp = postJSON(t, sessionURL+"/scan", map[string]any{"barcode": "4600000000017"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	var commitResult struct {
		Recorded int `json:"recorded"`
		Totals   struct {
			Total float64 `json:"total"`
		} `json:"totals"`
	}
	resp = postJSON(t, sessionURL+"/commit", map[string]any{"buyer_id": buyerID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &commitResult)
	require.Equal(t, 1, commitResult.Recorded)
	require.InDelta(t, 3.60, commitResult.Totals.Total, 0.001)

	// Stock went down by the committed quantity.
	var productsResp struct {
		Products []catalog.Product `json:"products"`
	}
	getResp, err = http.Get(server.URL + "/products")
	require.NoError(t, err)
	decodeBody(t, getResp, &productsResp)
	require.Len(t, productsResp.Products, 1)
	require.Equal(t, 8, productsResp.Products[0].Quantity)

	// The committed session is gone.
	getResp, err = http.Get(sessionURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)
	getResp.Body.Close()

	var summary struct {
		Revenue   float64 `json:"revenue"`
		SaleCount int     `json:"sale_count"`
	}
	getResp, err = http.Get(server.URL + "/analytics/summary?range=all")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	decodeBody(t, getResp, &summary)
	require.InDelta(t, 3.0, summary.Revenue, 0.001)
	require.Equal(t, 1, summary.SaleCount)

	backend.mu.Lock()
	recordedSales := len(backend.saleRows)
	backend.mu.Unlock()
	require.Equal(t, 1, recordedSales)
}

func TestInventoryAndPricingFlow(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/categories", map[string]any{"name": "Snacks"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var categoriesResp struct {
		Categories []catalog.Category `json:"categories"`
	}
	getResp, err := http.Get(server.URL + "/categories")
	require.NoError(t, err)
	decodeBody(t, getResp, &categoriesResp)
	categoryID := categoriesResp.Categories[0].ID

	resp = postJSON(t, server.URL+"/products", map[string]any{
		"barcode": "4600000000048", "name": "Salted Crisps",
		"category_id": categoryID, "quantity": 5, "price": 2.00,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created catalog.Product
	decodeBody(t, resp, &created)

	resp = postJSON(t, server.URL+"/pricing/increase", map[string]any{
		"product_ids": []int64{created.ID}, "percent": 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var inventory struct {
		Lines []struct {
			catalog.Product
			StockValue float64 `json:"stock_value"`
			LowStock   bool    `json:"low_stock"`
		} `json:"lines"`
		TotalValue float64 `json:"total_value"`
	}
	getResp, err = http.Get(server.URL + "/inventory")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	decodeBody(t, getResp, &inventory)
	require.Len(t, inventory.Lines, 1)
	require.InDelta(t, 2.20, inventory.Lines[0].Price, 0.001)
	require.InDelta(t, 11.0, inventory.TotalValue, 0.001)
	require.True(t, inventory.Lines[0].LowStock)

	getResp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	getResp.Body.Close()
}

