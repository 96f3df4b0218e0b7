// Package http exposes the analytics JSON endpoints.
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/retailpoint/retailpoint/internal/analytics"
	"github.com/retailpoint/retailpoint/internal/platform/httpx"
)

// Handler serves sales analytics.
type Handler struct {
	logger  *slog.Logger
	service *analytics.Service
}

// NewHandler builds the analytics handler.
func NewHandler(logger *slog.Logger, service *analytics.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.history)
	r.Get("/summary", h.summary)
	r.Get("/export.csv", h.exportCSV)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	rng := r.URL.Query().Get("range")
	categoryID := parseOptionalID(r.URL.Query().Get("category_id"))
	buyerID := parseOptionalID(r.URL.Query().Get("buyer_id"))

	rows, err := h.service.History(r.Context(), rng, categoryID, buyerID)
	if err != nil {
		h.logger.Error("sales history failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": rows, "count": len(rows)})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		h.logger.Error("sales summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.History(r.Context(), r.URL.Query().Get("range"), nil, nil)
	if err != nil {
		h.logger.Error("sales export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := analytics.WriteSalesCSV(w, rows); err != nil {
		h.logger.Error("write sales csv", slog.Any("error", err))
	}
}

func parseOptionalID(raw string) *int64 {
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
