/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the collecte engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Open the store (SQLite or PostgreSQL)
  3. Connect Redis when configured (parameter cache and closing lock)
  4. Register Prometheus metrics
  5. Build the service and the API handler
  6. Start the accrual scheduler and the HTTP server

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -driver  sqlite or postgres (default: sqlite)
  -db      SQLite path or PostgreSQL DSN (default: collecte.db)
           Use ":memory:" for an in-memory SQLite database
  -redis   Redis URL, e.g. redis://localhost:6379/0 (default: none)

ENVIRONMENT:
  See config/config.go. Flags win over the environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the accrual scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close Redis and database connections
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/collecte.db"

  # Run against PostgreSQL with a shared Redis
  ./server -driver=postgres -db="postgres://collecte@localhost/collecte?sslmode=disable" \
      -redis="redis://localhost:6379/0"

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - service/service.go: Wiring of the domain components
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/focep/collecte-engine/api"
	"github.com/focep/collecte-engine/cache"
	"github.com/focep/collecte-engine/config"
	"github.com/focep/collecte-engine/factory"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/lock"
	"github.com/focep/collecte-engine/metrics"
	"github.com/focep/collecte-engine/service"
	"github.com/focep/collecte-engine/store/postgres"
	"github.com/focep/collecte-engine/store/sqlite"
)

// backend is what both stores provide.
type backend interface {
	service.LedgerBackend
	service.ParameterAdmin
	service.EntityRegistry
	generic.Store
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Parameter cache and closing lock: Redis when configured, in-process otherwise
	var (
		cacheStore cache.Store = cache.NewMemory()
		locker     lock.Locker = lock.NewMemory()
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		cacheStore = cache.NewRedis(rdb)
		locker = lock.NewRedis(rdb)
		logger.Info("redis connected", "addr", opts.Addr)
	}

	params, err := cache.New(store, cacheStore,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithLogger(logger),
		cache.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("failed to build parameter cache: %w", err)
	}

	svc, err := service.New(store,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithLocker(locker, cfg.LockTTL),
		service.WithParameterSource(params),
		service.WithCurrency(cfg.Currency),
		service.WithSplitPolicy(cfg.SplitPolicy()),
		service.WithTierMode(cfg.TierMode),
		service.WithStrictTiers(cfg.StrictTiers),
		service.WithPromotionGrace(cfg.PromotionGraceMonths),
		service.WithReconcilerConfig(cfg.ReconcilerConfig()),
	)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	parameterFactory := factory.NewParameterFactory()
	if cfg.StrictTiers {
		parameterFactory = factory.NewStrictParameterFactory()
	}
	handler := api.NewHandler(svc,
		api.WithLogger(logger),
		api.WithParameterFactory(parameterFactory),
		api.WithHealthCheck(store.Ping),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)

	scheduler := api.NewAccrualScheduler(svc, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "driver", cfg.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN, postgres.WithCurrency(cfg.Currency))
	default:
		return sqlite.New(cfg.DSN)
	}
}
