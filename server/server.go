// Package server wires storage, services and handlers into the gateway's HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-htmlcsstoimage/config"
	"go-htmlcsstoimage/handlers"
	"go-htmlcsstoimage/services"
	"go-htmlcsstoimage/storage"
	"go-htmlcsstoimage/urlgen"
)

const shutdownTimeout = 10 * time.Second

// Run serves the gateway until ctx is cancelled and then shuts down gracefully.
func Run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	store, closeStore, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Error closing storage", zap.Error(err))
		}
	}()

	handler, err := setupHandler(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	router := setupRouter(ctx, handler, cfg, logger)
	srv := setupServer(cfg, router)

	errCh := make(chan error, 1)
	go func() { errCh <- startServer(srv, logger) }()

	return waitForShutdown(ctx, srv, errCh, logger)
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		store, err := storage.NewRedisStorage(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Capacity: cfg.StorageCapacity,
		}, logger.Named("storage"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using Redis template storage", zap.String("addr", cfg.RedisAddr))
		return store, store.Close, nil
	case config.StorageMemory, "":
		logger.Info("Using in-memory template storage", zap.Int("capacity", cfg.StorageCapacity))
		return storage.NewInMemoryStorage(cfg.StorageCapacity, logger.Named("storage")), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func setupHandler(ctx context.Context, cfg *config.Config, store storage.Storage, logger *zap.Logger) (handlers.HandlerInterface, error) {
	handlerCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	gen, err := urlgen.New(cfg.APIID, cfg.APIKey, urlgen.WithHost(cfg.Host))
	if err != nil {
		logger.Error("Failed to create URL generator", zap.Error(err))
		return nil, err
	}

	signing := services.NewSigningService(gen, store, logger.Named("signing"))
	templates := services.NewTemplateService(store, logger.Named("templates"))

	handler, err := handlers.NewHandler(handlerCtx, signing, templates, cfg, logger.Named("handlers"))
	if err != nil {
		logger.Error("Failed to create handler", zap.Error(err))
		return nil, err
	}

	logger.Debug("Handler created successfully")
	return handler, nil
}

func setupRouter(ctx context.Context, handler handlers.HandlerInterface, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	handlers.RegisterRoutes(ctx, router, handler, cfg)
	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

func setupServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}
}

func startServer(srv *http.Server, logger *zap.Logger) error {
	logger.Debug("Starting server", zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Debug("Server stopped")
	return nil
}

func waitForShutdown(ctx context.Context, srv *http.Server, errCh <-chan error, logger *zap.Logger) error {
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutdown requested. Initiating server shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}
