package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/studyflow/course-processor/api/handlers"
	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/internal/quota"
	"github.com/studyflow/course-processor/pkg/logger"
)

// SetupRoutes wires all API routes and their middleware.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, window *quota.SlidingWindow, limits middleware.RateLimitConfig, log logger.Logger) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.Use(middleware.RateLimit(window, limits, log))

	docs := v1.Group("/documents")
	{
		docs.POST("/ingest", h.Ingest.ProcessUpload)
		docs.GET("", h.Documents.List)
		docs.GET("/:docId", h.Documents.Get)
		docs.GET("/:docId/export", h.Documents.Export)
		docs.DELETE("/:docId", h.Documents.Delete)
	}

	chunks := v1.Group("/chunks")
	{
		chunks.PUT("/:chunkId", h.Documents.UpdateChunk)
		chunks.DELETE("/:chunkId", h.Documents.DeleteChunk)
	}

	v1.POST("/retrieve", h.Retrieve.Retrieve)
}
