package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kbarry/remitax-go/internal/config"
	"github.com/kbarry/remitax-go/internal/dedup"
	"github.com/kbarry/remitax-go/internal/domain"
	"github.com/kbarry/remitax-go/internal/fx"
	"github.com/kbarry/remitax-go/internal/handler"
	"github.com/kbarry/remitax-go/internal/infra/cache"
	"github.com/kbarry/remitax-go/internal/infra/client"
	"github.com/kbarry/remitax-go/internal/infra/observability"
	"github.com/kbarry/remitax-go/internal/infra/resilience"
	"github.com/kbarry/remitax-go/internal/infra/store"
	"github.com/kbarry/remitax-go/internal/match"
	"github.com/kbarry/remitax-go/internal/service"
	"github.com/kbarry/remitax-go/internal/tax"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("rates_api_url", cfg.RatesAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("rates_cache_ttl", cfg.RatesCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Float64("auto_accept_threshold", cfg.AutoAcceptThreshold),
		zap.Float64("review_threshold", cfg.ReviewThreshold),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "remitax")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Rate source: breaker + retry around the external API ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("rates-api")
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	ratesClient := client.NewRatesClient(httpClient, cfg.RatesAPIURL, cb, resilienceCfg)

	ratesCache := cache.New[domain.RateTable](cfg.RatesCacheTTL)
	converter := fx.NewConverter(ratesClient, ratesCache, metrics, logger)

	// --- Stores (in-memory; persistence belongs to the surrounding system) ---
	st := store.NewMemory()

	// --- Core components ---
	matcher := match.NewMatcher(match.Config{
		AutoAcceptThreshold: cfg.AutoAcceptThreshold,
		ReviewThreshold:     cfg.ReviewThreshold,
	})
	detector := dedup.NewDetector(dedup.DefaultConfig())
	calc := tax.NewCalculator(tax.DefaultSchedule())
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Services ---
	receiptsSvc := service.NewReceipts(st, st, converter, matcher, detector, calc, bulkhead, metrics, logger)
	familySvc := service.NewFamily(st, logger)
	taxSvc := service.NewTax(calc, logger)

	// --- Router ---
	router := handler.NewRouter(receiptsSvc, familySvc, taxSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
