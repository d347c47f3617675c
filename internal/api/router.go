package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cantus-labs/cantus-api/internal/api/handlers"
	apimiddleware "github.com/cantus-labs/cantus-api/internal/api/middleware"
	"github.com/cantus-labs/cantus-api/internal/config"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	router.GET("/health", handlers.HealthCheck(db))

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version, db)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Generation endpoint
	generateHandler := handlers.NewGenerateHandler(db, cfg.MaxMeasures)
	router.POST("/api/generate", generateHandler.Generate)

	// Stored piece endpoints
	pieces := router.Group("/api/pieces")
	{
		piecesHandler := handlers.NewPiecesHandler(db, cfg.DefaultTempo)
		pieces.GET("", piecesHandler.List)
		pieces.GET("/:id", piecesHandler.Get)
		pieces.GET("/:id/lilypond", piecesHandler.LilyPond)
		pieces.GET("/:id/midi", piecesHandler.MIDI)
		pieces.POST("/:id/correct", piecesHandler.Correct)
	}

	return router
}
