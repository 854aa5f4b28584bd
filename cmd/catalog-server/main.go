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

	"bookauthor/database"
	"bookauthor/internal/catalogserver"
	"bookauthor/internal/config"
	"bookauthor/internal/imagestore"
	"bookauthor/internal/middleware"
)

// memoryDSN selects the in-process store instead of postgres.
const memoryDSN = "memory"

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

	var store catalogserver.Store
	if cfg.DatabaseURL == memoryDSN {
		logger.Warn("using_memory_store", "note", "data is lost on restart")
		store = catalogserver.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg, logger, catalogserver.Records()...)
		if err != nil {
			logger.Error("database_unavailable", "error", err)
			os.Exit(1)
		}
		defer database.Close(db)
		store = catalogserver.NewGormStore(db)
	}

	ctx := context.Background()
	images, err := imagestore.New(ctx, cfg)
	if err != nil {
		logger.Error("image_store_unavailable", "error", err)
		os.Exit(1)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(logger), middleware.Recovery(logger), middleware.BodyLimit(cfg.UploadMaxSize+1<<20))
	if cfg.ImageBucket == "" && cfg.ImageDir != "" {
		r.Static(imagestore.DefaultDirURL, cfg.ImageDir)
	}
	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "catalog is alive"})
	})
	catalogserver.NewHandler(store, images, logger).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.CatalogPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_catalog_server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigCtx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err)
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_failed", "error", err)
		return
	}
	logger.Info("server_stopped_gracefully")
}
