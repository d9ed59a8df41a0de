package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/variantlens/backend/config"
	httpDelivery "github.com/variantlens/backend/internal/delivery/http"
	"github.com/variantlens/backend/internal/domain"
	"github.com/variantlens/backend/internal/infrastructure/blob"
	"github.com/variantlens/backend/internal/infrastructure/catalog"
	"github.com/variantlens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting variantlens backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cacheType", cfg.Cache.Type))

	// Blob store backs both the result cache and learned-pattern state
	store, err := blob.NewFactory(blob.StoreConfig{
		Type:     cfg.Cache.Type,
		Dir:      cfg.Cache.Dir,
		RedisURL: cfg.Cache.RedisURL,
	}, blob.WithLogger(logger)).Create()
	if err != nil {
		logger.Fatal("failed to create blob store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()

	// Pattern registry and feedback learner
	registry := usecase.NewPatternRegistry()
	feedback := usecase.NewFeedbackService(registry, store, logger)
	feedback.Load(ctx)

	// Detection engine
	detector := usecase.NewDetectorService(registry, feedback, cfg.Detection.MaxPatternLength, logger)

	cache := usecase.NewResultCache(cfg.Cache.MaxAge, store, logger)
	cache.Load(ctx)

	// Scheduler drives periodic full scans over the configured catalog
	source := catalog.NewFileSource(cfg.Catalog.Path)
	scheduler := usecase.NewScheduler(detector, cache, source, usecase.SchedulerConfig{
		AnalysisInterval: cfg.Scheduler.AnalysisInterval,
		Defaults:         detectionDefaults(cfg),
	}, logger)
	scheduler.Start()

	// HTTP delivery
	handler := httpDelivery.NewHandler(scheduler, detector, registry, feedback, logger)
	defer handler.Close()

	router := httpDelivery.SetupRouter(cfg, handler, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop the scheduler, flush learned state and the
	// cache, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	scheduler.Stop()
	feedback.Close(ctx)
	cache.Persist(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

// newLogger builds the process logger for the environment.
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// detectionDefaults maps configuration onto the options applied to
// scheduled full scans.
func detectionDefaults(cfg *config.Config) domain.DetectionOptions {
	opts := domain.DefaultDetectionOptions()
	opts.MinConfidence = cfg.Detection.MinConfidence
	opts.MinGroupSize = cfg.Detection.MinGroupSize
	opts.MaxPatternLength = cfg.Detection.MaxPatternLength
	opts.EnableSKUDetection = cfg.Detection.EnableSKUDetection
	opts.EnableNameSimilarity = cfg.Detection.EnableNameSimilarity
	opts.EnableAttributeDetection = cfg.Detection.EnableAttributeDetection
	opts.EnableMLDetection = cfg.Detection.EnableMLDetection
	opts.MaxCacheAge = cfg.Cache.MaxAge
	opts.BatchSize = cfg.Scheduler.BatchSize
	return opts
}
