// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/config"
	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/handlers"
	"github.com/Shimizu-Technology/neet-question-api/internal/middleware"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/jobstatus"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/worker"
)

// Setup creates and configures the Gin router with all routes.
func Setup(db *database.DB, wp *worker.Pool, engine *extraction.Engine, tracker *jobstatus.Tracker, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	// Multipart files beyond this are spooled to temp files instead of memory.
	r.MaxMultipartMemory = 8 << 20

	h := handlers.NewHandler(db, wp, engine, tracker, cfg.JWTSecret, cfg.UploadDir, cfg.MaxUploadBytes)

	// --- Public Routes ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPIDocument)
	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)

	// --- Operator Routes (X-Admin-Key) ---
	admin := r.Group("/api/v1/keys")
	admin.Use(middleware.AdminAuth(cfg.AdminAPIKey))
	{
		admin.POST("", h.CreateAPIKey)
		admin.GET("", h.ListAPIKeys)
		admin.DELETE("/:id", h.RevokeAPIKey)
	}

	// --- Portal Routes (JWT only) ---
	portal := r.Group("/api/v1/auth")
	portal.Use(middleware.JWTAuth(db, cfg.JWTSecret))
	{
		portal.GET("/me", h.GetMe)
		portal.POST("/refresh", h.RefreshToken)
		portal.POST("/keys", h.CreateUserAPIKey)
		portal.GET("/keys", h.ListUserAPIKeys)
	}

	// --- Protected Routes (API key OR JWT) ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.DualAuth(db, cfg.JWTSecret))
	{
		// Extraction jobs. Static segments must be registered alongside :id.
		protected.POST("/extractions", h.CreateExtraction)
		protected.POST("/extractions/sync", h.ExtractSync)
		protected.POST("/extractions/batch", h.CreateBatch)
		protected.GET("/extractions", h.ListExtractions)
		protected.GET("/extractions/:id", h.GetExtraction)
		protected.GET("/extractions/:id/logs", h.GetExtractionLogs)
		protected.GET("/extractions/:id/questions", h.ListExtractionQuestions)
		protected.GET("/extractions/:id/export", h.ExportExtraction)
		protected.POST("/extractions/:id/cancel", h.CancelExtraction)
		protected.DELETE("/extractions/:id", h.DeleteExtraction)

		protected.GET("/batches/:id", h.GetBatch)

		// Webhook management; the handlers require an API key caller.
		protected.POST("/webhooks", h.CreateWebhook)
		protected.GET("/webhooks", h.ListWebhooks)
		protected.GET("/webhooks/deliveries", h.ListWebhookDeliveries)
		protected.PATCH("/webhooks/:id", h.UpdateWebhook)
		protected.DELETE("/webhooks/:id", h.DeleteWebhook)
	}

	return r
}
