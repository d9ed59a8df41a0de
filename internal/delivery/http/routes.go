package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/variantlens/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/run", handler.RunAnalysis)
			analysis.POST("/force", handler.ForceAnalysis)
			analysis.GET("/export", handler.ExportAnalysis)
			analysis.GET("/stats", handler.Statistics)
		}

		scheduler := v1.Group("/scheduler")
		{
			scheduler.POST("/start", handler.StartScheduler)
			scheduler.POST("/stop", handler.StopScheduler)
			scheduler.POST("/pause", handler.PauseScheduler)
			scheduler.POST("/resume", handler.ResumeScheduler)
		}

		v1.POST("/feedback", handler.RecordFeedback)

		patterns := v1.Group("/patterns")
		{
			patterns.GET("", handler.ListPatterns)
			patterns.POST("", handler.RegisterPattern)
		}
	}

	return router
}
