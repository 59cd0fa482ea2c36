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

	"github.com/budgetforpublic/budget-api/internal/config"
	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/handler"
	"github.com/budgetforpublic/budget-api/internal/i18n"
	"github.com/budgetforpublic/budget-api/internal/infra/cache"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/infra/resilience"
	"github.com/budgetforpublic/budget-api/internal/infra/source"
	"github.com/budgetforpublic/budget-api/internal/port"
	"github.com/budgetforpublic/budget-api/internal/service"
	"github.com/budgetforpublic/budget-api/internal/session"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_base_url", cfg.DataBaseURL),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("fallback_enabled", cfg.FallbackEnabled),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("default_locale", cfg.DefaultLocale),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "budget-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	docCache := cache.New[*domain.BudgetDocument](cfg.CacheTTL)
	defer docCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Document source ---
	var docs port.DocumentSource
	switch {
	case cfg.DataBaseURL != "":
		logger.Info("using HTTP data source", zap.String("base_url", cfg.DataBaseURL))
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		cb := resilience.NewCircuitBreaker("budget-data", logger)
		docs = source.NewHTTPSource(httpClient, cfg.DataBaseURL, cb, resilienceCfg)
	case cfg.DataDir != "":
		logger.Info("using data directory", zap.String("dir", cfg.DataDir))
		docs = source.NewDirSource(os.DirFS(cfg.DataDir), "data-dir")
	default:
		logger.Warn("no data source configured, serving embedded data only")
		docs = source.NewDirSource(source.Embedded(), "embedded")
		cfg.FallbackEnabled = false
	}
	if cfg.FallbackEnabled {
		docs = source.NewFallbackSource(docs, source.NewDirSource(source.Embedded(), "embedded"), metrics, logger)
	}

	// --- Services ---
	bundle, err := i18n.NewBundle()
	if err != nil {
		logger.Fatal("failed to load locale catalogs", zap.Error(err))
	}

	budgetSvc := service.NewBudget(docs, docCache, bundle, bulkhead, metrics, logger, service.Options{
		FirstYear:     cfg.FirstYear,
		LastYear:      cfg.LastYear,
		DefaultLocale: cfg.DefaultLocale,
	})
	budgetSvc.Prefetch(context.Background(), domain.LevelNational, domain.NationalIdentifier(cfg.LastYear))

	sessions := session.NewRegistry(cfg.SessionTTL, metrics, logger)
	defer sessions.Close()

	// --- Router ---
	router := handler.NewRouter(budgetSvc, sessions, metrics, logger)

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
