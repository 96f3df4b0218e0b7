package catalog

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// StateStore is the slice of the application state container the catalog
// screens use.
type StateStore interface {
	FetchProducts(ctx context.Context) error
	FetchCategories(ctx context.Context) error
	Products() []Product
	Categories() []Category
	ProductByBarcode(barcode string) (Product, bool)
	AddProduct(ctx context.Context, p NewProduct) error
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) error
	AddCategory(ctx context.Context, name string) error
}

// Handler serves the add-product and inventory screens.
type Handler struct {
	logger            *slog.Logger
	store             StateStore
	validate          *validator.Validate
	lowStockThreshold int
}

// NewHandler builds the catalog handler.
func NewHandler(logger *slog.Logger, store StateStore, lowStockThreshold int) *Handler {
	return &Handler{
		logger:            logger,
		store:             store,
		validate:          validator.New(),
		lowStockThreshold: lowStockThreshold,
	}
}

// MountRoutes attaches catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.addProduct)
		r.Patch("/{id}", h.updateProduct)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.addCategory)
	})
	r.Get("/inventory", h.inventory)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchProducts(r.Context()); err != nil {
		h.logger.Error("fetch products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	products := filterProducts(h.store.Products(), r.URL.Query().Get("category_id"), r.URL.Query().Get("search"))
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	// Pre-insert duplicate scan against the cached snapshot. Only as fresh
	// as the last fetch; the backend unique constraint is the real guard.
	if existing, ok := h.store.ProductByBarcode(req.Barcode); ok {
		httpx.Problem(w, http.StatusConflict, "Duplicate Barcode",
			"barcode "+req.Barcode+" already belongs to product "+strconv.FormatInt(existing.ID, 10))
		return
	}

	err := h.store.AddProduct(r.Context(), NewProduct{
		Barcode:    req.Barcode,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Quantity:   req.Quantity,
		Price:      req.Price,
	})
	if err != nil {
		h.logger.Error("add product failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	created, _ := h.store.ProductByBarcode(req.Barcode)
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be numeric")
		return
	}

	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.store.UpdateProduct(r.Context(), id, req.Patch()); err != nil {
		h.logger.Error("update product failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": id})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchCategories(r.Context()); err != nil {
		h.logger.Error("fetch categories failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	categories := h.store.Categories()
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories, "count": len(categories)})
}

func (h *Handler) addCategory(w http.ResponseWriter, r *http.Request) {
	var req AddCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.store.AddCategory(r.Context(), req.Name); err != nil {
		h.logger.Error("add category failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"name": req.Name})
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return h.store.FetchProducts(ctx) })
	g.Go(func() error { return h.store.FetchCategories(ctx) })
	if err := g.Wait(); err != nil {
		h.logger.Error("inventory refresh failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	categoryNames := make(map[int64]string)
	for _, c := range h.store.Categories() {
		categoryNames[c.ID] = c.Name
	}

	products := filterProducts(h.store.Products(), r.URL.Query().Get("category_id"), r.URL.Query().Get("search"))
	view := InventoryView{}
	for _, p := range products {
		value := math.Round(p.Price*float64(p.Quantity)*100) / 100
		view.Lines = append(view.Lines, InventoryLine{
			Product:      p,
			CategoryName: categoryNames[p.CategoryID],
			StockValue:   value,
			LowStock:     p.Quantity <= h.lowStockThreshold,
		})
		view.TotalValue += value
	}
	view.TotalValue = math.Round(view.TotalValue*100) / 100
	httpx.JSON(w, http.StatusOK, view)
}

// filterProducts applies the category and search filters the listing
// screens share. Filtering happens on the snapshot, not at the backend.
func filterProducts(products []Product, categoryID, search string) []Product {
	var catID int64
	if categoryID != "" {
		catID, _ = strconv.ParseInt(categoryID, 10, 64)
	}
	search = strings.ToLower(search)

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if catID != 0 && p.CategoryID != catID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(p.Barcode, search) {
			continue
		}
		out = append(out, p)
	}
	return out
}
