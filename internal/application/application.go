package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cutlist-optimizer/internal/api"
	"github.com/eugenenazirov/cutlist-optimizer/internal/catalog"
	"github.com/eugenenazirov/cutlist-optimizer/internal/config"
	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
	"github.com/eugenenazirov/cutlist-optimizer/internal/storage"
	"github.com/eugenenazirov/cutlist-optimizer/internal/templates"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	catalog   *catalog.Catalog
	storage   storage.Storage
	optimizer optimizer.Optimizer
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	cat, err := LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded",
		zap.Int("products", cat.Len()),
		zap.Strings("materials", cat.Materials()),
		zap.String("source", catalogSource(cfg.CatalogFile)),
	)

	store, err := OpenStorage(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	opt := optimizer.New(cat)
	handlerOpts := []api.HandlerOption{api.WithLogger(logger)}
	if cfg.EnableMetrics {
		handlerOpts = append(handlerOpts, api.WithMetrics(newMetrics()))
	}
	handler := api.NewHandler(opt, cat, store, templates.Default(), handlerOpts...)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)

	return &App{
		catalog:   cat,
		storage:   store,
		optimizer: opt,
		handler:   handler,
		router:    router,
		logger:    logger,
		server:    NewServer(cfg, router),
	}, nil
}

// LoadCatalog reads the product catalog from path, or returns the built-in
// catalog when path is empty.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// OpenStorage opens SQLite project storage at path, or in-memory storage
// when path is empty.
func OpenStorage(ctx context.Context, path string, logger *zap.Logger) (storage.Storage, error) {
	if path == "" {
		logger.Info("using in-memory project storage")
		return storage.NewMemoryStorage(storage.WithLogger(logger)), nil
	}
	store, err := storage.OpenSQLite(ctx, path, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open project storage: %w", err)
	}
	logger.Info("using SQLite project storage", zap.String("path", path))
	return store, nil
}

func newMetrics() *api.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return api.NewMetrics(reg)
}

func catalogSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Close releases project storage. Call it after the server has shut down.
func (a *App) Close() error {
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("close project storage: %w", err)
	}
	return nil
}
