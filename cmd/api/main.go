// Package main is the entry point for the food search API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/forkful/internal/api"
	"github.com/onnwee/forkful/internal/config"
	"github.com/onnwee/forkful/internal/db"
	"github.com/onnwee/forkful/internal/food"
	"github.com/onnwee/forkful/internal/health"
	"github.com/onnwee/forkful/internal/middleware"
	"github.com/onnwee/forkful/internal/ranking"
	"github.com/onnwee/forkful/internal/search"
	"github.com/onnwee/forkful/internal/tracing"
)

const serviceName = "forkful-api"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Forkful Search API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	store, conn, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	healthCfg := api.HealthHandlersConfig{}
	if conn != nil {
		defer conn.Close()
		healthCfg.DBChecker = health.NewDBChecker(conn)
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("ranking calibration not loaded, using defaults", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	searchMetrics := search.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	if err := searchMetrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register search metrics: %w", err)
	}
	if err := httpMetrics.Register(registry); err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	engine, err := search.NewEngine(store,
		search.WithLogger(logger),
		search.WithWeights(weights),
		search.WithMetrics(searchMetrics),
		search.WithFuzzyTags(cfg.SearchFuzzyTags),
		search.WithTimeout(cfg.SearchTimeout()),
	)
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}

	var limitStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		limitStore = middleware.NewRedisRateLimitStore(client)
		healthCfg.RedisChecker = health.NewRedisChecker(client)
		logger.Info("using redis rate limiter")
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		memStore.StartCleanup(ctx, 5*time.Minute)
		limitStore = memStore
	}

	a := &app{
		search:   api.NewSearchHandlers(engine),
		health:   api.NewHealthHandlers(healthCfg),
		registry: registry,
		metrics:  httpMetrics,
		logger:   logger,
		limiter: middleware.RateLimiter(limitStore, middleware.RateLimitConfig{
			RequestsPerWindow: cfg.SearchRateLimit,
			WindowDuration:    time.Minute,
		}, middleware.IPKeyFunc(), httpMetrics),
	}

	server := newServer(":"+strconv.Itoa(cfg.Port), a.handler())
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "driver", cfg.DatabaseDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openCatalog builds the catalog store for the configured driver. The
// returned *sql.DB is nil for the memory driver.
func openCatalog(ctx context.Context, cfg *config.Config) (food.CatalogStore, *sql.DB, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		store := food.NewInMemoryStore()
		if cfg.SeedFile != "" {
			fixture, err := food.LoadFixture(cfg.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			if err := store.Seed(ctx, fixture); err != nil {
				return nil, nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
			slog.Info("memory catalog seeded", "file", cfg.SeedFile, "items", len(fixture.Items))
		}
		return store, nil, nil

	case config.DriverSQLite:
		store, err := food.OpenSQLiteStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.DB(), nil

	default:
		conn, err := db.Open(ctx, db.DriverPostgres, cfg.DatabaseURL, db.DefaultPoolConfig())
		if err != nil {
			return nil, nil, err
		}
		return food.NewPostgresStore(conn), conn, nil
	}
}

// app holds the HTTP dependencies of the server.
type app struct {
	search   *api.SearchHandlers
	health   *api.HealthHandlers
	limiter  func(http.Handler) http.Handler
	registry *prometheus.Registry
	metrics  *middleware.Metrics
	logger   *slog.Logger
}

// routes registers every endpoint. Only /search routes are rate limited.
func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", a.health.Health)
	mux.HandleFunc("/ready", a.health.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	mux.Handle("/search/foods", a.limiter(http.HandlerFunc(a.search.SearchFoods)))
	mux.Handle("/search/suggest", a.limiter(http.HandlerFunc(a.search.Suggest)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
	})

	return mux
}

// handler wraps the routes in RequestID -> Tracing -> Logging -> HTTPMetrics.
func (a *app) handler() http.Handler {
	var h http.Handler = a.routes()
	h = middleware.HTTPMetrics(a.metrics)(h)
	h = middleware.Logging(a.logger)(h)
	h = middleware.Tracing(serviceName)(h)
	return middleware.RequestID(h)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
