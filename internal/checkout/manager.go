package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/platform/httpx"
	"github.com/retailpoint/retailpoint/internal/sales"
)

var (
	// ErrSessionNotFound indicates an unknown or already-committed session.
	ErrSessionNotFound = errors.New("checkout: session not found")
	// ErrEmptyCart indicates a commit attempt on a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrBuyerRequired indicates a commit attempt without a selected buyer.
	ErrBuyerRequired = errors.New("checkout: buyer required")
)

// Inventory is the slice of the state container the checkout flow needs:
// snapshot lookups for scans and the sale-recording operation for commit.
type Inventory interface {
	ProductByBarcode(barcode string) (catalog.Product, bool)
	ProductByID(id int64) (catalog.Product, bool)
	AddSale(ctx context.Context, s sales.NewSale) error
}

// LineFailure reports one cart line whose sale could not be recorded.
type LineFailure struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
}

// CommitResult summarises a checkout commit. Partial failure is possible:
// there is no transaction spanning the cart.
type CommitResult struct {
	Recorded int           `json:"recorded"`
	Failures []LineFailure `json:"failures,omitempty"`
	Totals   Totals        `json:"totals"`
}

// Manager owns the live checkout sessions.
type Manager struct {
	inv    Inventory
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
}

// NewManager builds a session manager over the given inventory view.
func NewManager(inv Inventory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		inv:    inv,
		logger: logger,
		now:    time.Now,
		carts:  make(map[uuid.UUID]*Cart),
	}
}

// Open starts a new checkout session with an empty cart.
func (m *Manager) Open() Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := &Cart{ID: uuid.New(), CreatedAt: m.now()}
	m.carts[cart.ID] = cart
	return cart.clone()
}

// Get returns a snapshot of the session's cart.
func (m *Manager) Get(id uuid.UUID) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrSessionNotFound
	}
	return cart.clone(), nil
}

// Scan matches a barcode against the product snapshot. A match increments an
// existing line's quantity by one or appends a new line with quantity one,
// capturing the product's current price. No match leaves the cart unchanged.
func (m *Manager) Scan(id uuid.UUID, barcode string) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrSessionNotFound
	}

	product, ok := m.inv.ProductByBarcode(barcode)
	if !ok {
		return cart.clone(), nil
	}

	for i := range cart.Lines {
		if cart.Lines[i].ProductID == product.ID {
			cart.Lines[i].Quantity++
			return cart.clone(), nil
		}
	}
	cart.Lines = append(cart.Lines, Line{
		ProductID: product.ID,
		Barcode:   product.Barcode,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  1,
	})
	return cart.clone(), nil
}

// SetQuantity sets an explicit quantity on an existing line. A quantity
// above the snapshot's available stock is rejected and the line is left
// unchanged; zero or below removes the line.
func (m *Manager) SetQuantity(id uuid.UUID, productID int64, qty int) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrSessionNotFound
	}

	if qty <= 0 {
		cart.removeLine(productID)
		return cart.clone(), nil
	}

	// A product absent from the snapshot has no known stock level; the edit
	// is rejected rather than waved through unchecked.
	product, ok := m.inv.ProductByID(productID)
	if !ok {
		return cart.clone(), fmt.Errorf("checkout: no stock information for product %d: %w", productID, httpx.ErrInsufficientStock)
	}
	if qty > product.Quantity {
		return cart.clone(), fmt.Errorf("checkout: only %d available for product %d: %w", product.Quantity, productID, httpx.ErrInsufficientStock)
	}

	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			cart.Lines[i].Quantity = qty
			return cart.clone(), nil
		}
	}
	return cart.clone(), fmt.Errorf("checkout: product %d not in cart: %w", productID, httpx.ErrNotFound)
}

// RemoveLine drops a line from the cart.
func (m *Manager) RemoveLine(id uuid.UUID, productID int64) (Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[id]
	if !ok {
		return Cart{}, ErrSessionNotFound
	}
	cart.removeLine(productID)
	return cart.clone(), nil
}

func (c *Cart) removeLine(productID int64) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Commit records one sale per cart line, strictly in sequence so backend
// write order matches cart order. total_price is computed from the captured
// unit price at commit time. The session is closed on completion regardless
// of per-line failures.
func (m *Manager) Commit(ctx context.Context, id uuid.UUID, buyerID int64) (CommitResult, error) {
	m.mu.Lock()
	cart, ok := m.carts[id]
	if !ok {
		m.mu.Unlock()
		return CommitResult{}, ErrSessionNotFound
	}
	if len(cart.Lines) == 0 {
		m.mu.Unlock()
		return CommitResult{}, ErrEmptyCart
	}
	if buyerID <= 0 {
		m.mu.Unlock()
		return CommitResult{}, ErrBuyerRequired
	}
	snapshot := cart.clone()
	delete(m.carts, id)
	m.mu.Unlock()

	result := CommitResult{Totals: snapshot.Totals()}
	committedAt := m.now()
	for _, line := range snapshot.Lines {
		sale := sales.NewSale{
			BuyerID:    buyerID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			TotalPrice: round2(line.UnitPrice * float64(line.Quantity)),
			Date:       committedAt,
		}
		if err := m.inv.AddSale(ctx, sale); err != nil {
			m.logger.Error("record sale failed",
				slog.Int64("product_id", line.ProductID),
				slog.Int("quantity", line.Quantity),
				slog.Any("error", err))
			result.Failures = append(result.Failures, LineFailure{ProductID: line.ProductID, Error: err.Error()})
			continue
		}
		result.Recorded++
	}
	return result, nil
}
