// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides request
// data, response methods and values set by middleware (c.Get/c.Set). Related
// handlers hang off one Handler struct that holds their shared dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/neet-question-api/internal/database"
	"github.com/Shimizu-Technology/neet-question-api/internal/models"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/extraction"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/jobstatus"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/upload"
	"github.com/Shimizu-Technology/neet-question-api/internal/services/worker"
)

// Version is reported by the health check.
const Version = "1.0.0"

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields instead of globals.
type Handler struct {
	DB      *database.DB
	Worker  *worker.Pool
	Engine  *extraction.Engine
	Tracker *jobstatus.Tracker

	JWTSecret      string
	UploadDir      string
	MaxUploadBytes int64
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, wp *worker.Pool, engine *extraction.Engine, tracker *jobstatus.Tracker, jwtSecret, uploadDir string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = upload.DefaultMaxBytes
	}
	return &Handler{
		DB:             db,
		Worker:         wp,
		Engine:         engine,
		Tracker:        tracker,
		JWTSecret:      jwtSecret,
		UploadDir:      uploadDir,
		MaxUploadBytes: maxUploadBytes,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	status := "ok"
	if dbStatus != "healthy" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:     status,
		Version:    Version,
		Database:   dbStatus,
		Workers:    h.Worker.WorkerCount(),
		QueueDepth: h.Worker.QueueSize(),
		OCR:        h.Engine.OCREnabled(),
	})
}

// abortJSON writes the standard error envelope.
func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
