package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dokanhq/dokan/internal/app"
	"github.com/dokanhq/dokan/internal/catalog"
	"github.com/dokanhq/dokan/internal/ledger"
	"github.com/dokanhq/dokan/internal/observability"
	"github.com/dokanhq/dokan/internal/party"
	"github.com/dokanhq/dokan/internal/payments"
	"github.com/dokanhq/dokan/internal/platform/cache"
	"github.com/dokanhq/dokan/internal/platform/db"
	"github.com/dokanhq/dokan/internal/purchases"
	"github.com/dokanhq/dokan/internal/reports"
	"github.com/dokanhq/dokan/internal/sales"
	"github.com/dokanhq/dokan/internal/settlement"
	"github.com/dokanhq/dokan/internal/shared"
	"github.com/dokanhq/dokan/internal/stock"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Reports degrade to uncached reads when Redis is down, so a failed
	// connection is not fatal.
	var redisClient *redis.Client
	if client, cacheErr := cache.New(ctx, cfg.RedisAddr); cacheErr != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", cacheErr))
	} else {
		redisClient = client
		defer func() { _ = client.Close() }()
	}

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)

	ledgerStore := ledger.NewStore()
	calc := settlement.NewCalculator()
	engine := settlement.NewEngine(ledgerStore, calc, metrics)
	stockSvc := stock.NewService()

	ledgerRepo := ledger.NewRepository(pool)
	partyHandler := party.NewHandler(party.NewService(party.NewRepository(pool), ledgerStore, audit), ledgerRepo)
	catalogHandler := catalog.NewHandler(catalog.NewService(catalog.NewRepository(pool)))
	ledgerHandler := ledger.NewHandler(ledgerRepo)
	salesHandler := sales.NewHandler(sales.NewService(sales.NewRepository(pool), stockSvc, ledgerStore, calc, audit))
	purchasesHandler := purchases.NewHandler(purchases.NewService(purchases.NewRepository(pool), stockSvc, ledgerStore, calc, audit))
	paymentsHandler := payments.NewHandler(payments.NewService(payments.NewRepository(pool), engine, ledgerStore, calc, audit))
	reportsHandler := reports.NewHandler(reports.NewService(reports.NewRepository(pool), reports.NewCache(redisClient, cfg.ReportCacheTTL)))

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Pool:    pool,

		PartyHandler:     partyHandler,
		CatalogHandler:   catalogHandler,
		LedgerHandler:    ledgerHandler,
		SalesHandler:     salesHandler,
		PurchasesHandler: purchasesHandler,
		PaymentsHandler:  paymentsHandler,
		ReportsHandler:   reportsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("stopped")
}
