package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookauthor/internal/catalog"
	"bookauthor/internal/config"
	"bookauthor/internal/imagestore"
	"bookauthor/internal/viewcache"
	"bookauthor/internal/web"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := config.NewLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL:   cfg.CatalogAPIURL,
		Timeout:   cfg.RequestTimeout,
		RPS:       cfg.CatalogRPS,
		Burst:     cfg.CatalogBurst,
		UserAgent: "bookauthor-web/1.0",
		Logger:    logger,
	})

	// Fall back to an in-process cache when Redis is not configured
	var store viewcache.Store = viewcache.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := viewcache.NewRedisStore(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Error("redis_unavailable", "error", err)
			os.Exit(1)
		}
		store = rs
	}
	defer store.Close()

	ctx := context.Background()
	images, err := imagestore.New(ctx, cfg)
	if err != nil {
		logger.Error("image_store_unavailable", "error", err)
		os.Exit(1)
	}
	imageDir := ""
	if cfg.ImageBucket == "" {
		imageDir = cfg.ImageDir
	}

	router := web.NewRouter(web.Options{
		API:       viewcache.New(client, store, cfg.CacheTTLDuration(), logger),
		Images:    images,
		ImageDir:  imageDir,
		Logger:    logger,
		Timeout:   cfg.RequestTimeout,
		MaxUpload: cfg.UploadMaxSize,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_web_server", "addr", srv.Addr, "catalog", cfg.CatalogAPIURL, "redis", cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
		return
	}
	logger.Info("server_stopped_gracefully")
}
