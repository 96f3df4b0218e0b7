package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/retailpoint/retailpoint/internal/analytics/http"
	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/checkout"
	"github.com/retailpoint/retailpoint/internal/observability"
	"github.com/retailpoint/retailpoint/internal/pricing"
)

// RouterParams collects the handlers mounted on the router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	CatalogHandler   *catalog.Handler
	BuyersHandler    *buyers.Handler
	CheckoutHandler  *checkout.Handler
	PricingHandler   *pricing.Handler
	AnalyticsHandler *analytichttp.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with RetailPoint defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}
	if params.BuyersHandler != nil {
		r.Route("/buyers", params.BuyersHandler.MountRoutes)
	}
	if params.CheckoutHandler != nil {
		r.Route("/checkout", params.CheckoutHandler.MountRoutes)
	}
	if params.PricingHandler != nil {
		r.Route("/pricing", params.PricingHandler.MountRoutes)
	}
	if params.AnalyticsHandler != nil {
		r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
	}

	return r
}
