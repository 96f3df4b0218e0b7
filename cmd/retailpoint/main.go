package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retailpoint/retailpoint/internal/analytics"
	analytichttp "github.com/retailpoint/retailpoint/internal/analytics/http"
	"github.com/retailpoint/retailpoint/internal/app"
	"github.com/retailpoint/retailpoint/internal/buyers"
	"github.com/retailpoint/retailpoint/internal/catalog"
	"github.com/retailpoint/retailpoint/internal/checkout"
	"github.com/retailpoint/retailpoint/internal/observability"
	"github.com/retailpoint/retailpoint/internal/platform/cache"
	"github.com/retailpoint/retailpoint/internal/platform/db"
	"github.com/retailpoint/retailpoint/internal/pricing"
	"github.com/retailpoint/retailpoint/internal/sales"
	"github.com/retailpoint/retailpoint/internal/store"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, analytics cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	productRepo := catalog.NewProductRepository(pool)
	categoryRepo := catalog.NewCategoryRepository(pool)
	buyerRepo := buyers.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)

	backend := store.NewBackend(productRepo, categoryRepo, buyerRepo, salesRepo)
	st := store.NewStore(backend, logger)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(salesRepo, analyticsCache)
	st.SetSaleHook(func(ctx context.Context) {
		if err := analyticsCache.Bump(ctx); err != nil {
			logger.Warn("analytics cache bump", slog.Any("error", err))
		}
	})

	// Prime the snapshot so the first screens render without waiting on a
	// fetch. Failures are tolerated; every screen refetches on entry.
	warmCtx, warmCancel := context.WithTimeout(ctx, 15*time.Second)
	for name, fetch := range map[string]func(context.Context) error{
		"products":   st.FetchProducts,
		"categories": st.FetchCategories,
		"buyers":     st.FetchBuyers,
		"sales":      st.FetchSales,
	} {
		if err := fetch(warmCtx); err != nil {
			logger.Warn("initial fetch failed", slog.String("collection", name), slog.Any("error", err))
		}
	}
	warmCancel()

	checkoutManager := checkout.NewManager(st, logger)
	pricingService := pricing.NewService(st, logger)
	repricer := pricing.NewAutoRepricer(st, logger, cfg.RepriceInterval)
	defer repricer.Stop()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, st, cfg.LowStockThreshold),
		BuyersHandler:    buyers.NewHandler(logger, st),
		CheckoutHandler:  checkout.NewHandler(logger, checkoutManager),
		PricingHandler:   pricing.NewHandler(logger, pricingService, repricer),
		AnalyticsHandler: analytichttp.NewHandler(logger, analyticsService),
		Metrics:          observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
