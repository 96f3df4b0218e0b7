package checkout

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// Handler exposes cashier sessions over HTTP.
type Handler struct {
	logger   *slog.Logger
	manager  *Manager
	validate *validator.Validate
}

// NewHandler builds the checkout handler.
func NewHandler(logger *slog.Logger, manager *Manager) *Handler {
	return &Handler{logger: logger, manager: manager, validate: validator.New()}
}

// MountRoutes attaches the session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.open)
	r.Get("/sessions/{sessionID}", h.get)
	r.Post("/sessions/{sessionID}/scan", h.scan)
	r.Put("/sessions/{sessionID}/lines/{productID}", h.setQuantity)
	r.Delete("/sessions/{sessionID}/lines/{productID}", h.removeLine)
	r.Post("/sessions/{sessionID}/commit", h.commit)
}

// ScanRequest carries one barcode read.
type ScanRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

// SetQuantityRequest replaces a line's quantity.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CommitRequest closes a session against a buyer.
type CommitRequest struct {
	BuyerID int64 `json:"buyer_id" validate:"required,gt=0"`
}

func (h *Handler) open(w http.ResponseWriter, _ *http.Request) {
	cart := h.manager.Open()
	httpx.JSON(w, http.StatusCreated, cartView(cart))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	cart, err := h.manager.Get(id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req ScanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cart, err := h.manager.Scan(id, req.Barcode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product ID", "product id must be an integer")
		return
	}
	var req SetQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	cart, err := h.manager.SetQuantity(id, productID, req.Quantity)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Product ID", "product id must be an integer")
		return
	}
	cart, err := h.manager.RemoveLine(id, productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req CommitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.manager.Commit(r.Context(), id, req.BuyerID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Session Not Found", err.Error())
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrBuyerRequired):
		httpx.Problem(w, http.StatusBadRequest, "Cannot Commit", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Session ID", "session id must be a UUID")
		return uuid.UUID{}, false
	}
	return id, true
}

func cartView(c Cart) map[string]any {
	return map[string]any{
		"session_id": c.ID,
		"created_at": c.CreatedAt,
		"lines":      c.Lines,
		"totals":     c.Totals(),
	}
}
