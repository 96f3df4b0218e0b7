package buyers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// StateStore is the slice of the state container the buyer screens use.
type StateStore interface {
	FetchBuyers(ctx context.Context) error
	Buyers() []Buyer
	AddBuyer(ctx context.Context, b NewBuyer) error
}

// Handler serves buyer registration and the checkout buyer picker.
type Handler struct {
	logger   *slog.Logger
	store    StateStore
	validate *validator.Validate
}

// NewHandler builds the buyers handler.
func NewHandler(logger *slog.Logger, store StateStore) *Handler {
	return &Handler{logger: logger, store: store, validate: validator.New()}
}

// MountRoutes attaches buyer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.add)
}

// AddBuyerRequest is the buyer registration payload.
type AddBuyerRequest struct {
	Name         string `json:"name" validate:"required"`
	PassportData string `json:"passport_data" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchBuyers(r.Context()); err != nil {
		h.logger.Error("fetch buyers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	list := h.store.Buyers()
	httpx.JSON(w, http.StatusOK, map[string]any{"buyers": list, "count": len(list)})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req AddBuyerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.store.AddBuyer(r.Context(), NewBuyer{Name: req.Name, PassportData: req.PassportData}); err != nil {
		h.logger.Error("add buyer failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"name": req.Name})
}
