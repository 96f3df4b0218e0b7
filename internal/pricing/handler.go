package pricing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// Handler exposes the bulk price tools and the auto-increase toggle.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	repricer *AutoRepricer
	validate *validator.Validate
}

// NewHandler builds the pricing handler.
func NewHandler(logger *slog.Logger, service *Service, repricer *AutoRepricer) *Handler {
	return &Handler{logger: logger, service: service, repricer: repricer, validate: validator.New()}
}

// MountRoutes attaches the pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/set", h.setPrice)
	r.Post("/increase", h.increase)
	r.Get("/auto", h.autoStatus)
	r.Post("/auto", h.autoToggle)
}

// SetPriceRequest writes one price to a product selection.
type SetPriceRequest struct {
	ProductIDs []int64 `json:"product_ids" validate:"required,min=1"`
	Price      float64 `json:"price" validate:"gte=0"`
}

// IncreaseRequest raises a selection's prices by a percentage.
type IncreaseRequest struct {
	ProductIDs []int64 `json:"product_ids" validate:"required,min=1"`
	Percent    float64 `json:"percent" validate:"gte=0"`
}

// AutoToggleRequest switches the recurring increase on or off.
type AutoToggleRequest struct {
	Enabled bool    `json:"enabled"`
	Percent float64 `json:"percent" validate:"gte=0"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.service.catalog.FetchProducts(r.Context()); err != nil {
		h.logger.Error("fetch products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	products := h.service.catalog.Products()
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

func (h *Handler) setPrice(w http.ResponseWriter, r *http.Request) {
	var req SetPriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetPrice(r.Context(), req.ProductIDs, req.Price); err != nil {
		h.logger.Error("set price failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": len(req.ProductIDs), "price": Round(req.Price)})
}

func (h *Handler) increase(w http.ResponseWriter, r *http.Request) {
	var req IncreaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.IncreaseByPercent(r.Context(), req.ProductIDs, req.Percent); err != nil {
		h.logger.Error("price increase failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": len(req.ProductIDs), "percent": req.Percent})
}

func (h *Handler) autoStatus(w http.ResponseWriter, _ *http.Request) {
	enabled, pct := h.repricer.Enabled()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"enabled":  enabled,
		"percent":  pct,
		"interval": h.repricer.Interval().String(),
	})
}

func (h *Handler) autoToggle(w http.ResponseWriter, r *http.Request) {
	var req AutoToggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Enabled {
		h.repricer.Start(req.Percent)
	} else {
		h.repricer.Stop()
	}
	enabled, pct := h.repricer.Enabled()
	httpx.JSON(w, http.StatusOK, map[string]any{"enabled": enabled, "percent": pct})
}
