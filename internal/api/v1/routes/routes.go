package routes

import (
	"github.com/gin-gonic/gin"

	"transcribe4all/internal/api/v1/handlers"
)

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, h *handlers.TranscriptionHandler) {
	transcriptions := router.Group("/transcriptions")
	{
		transcriptions.POST("", h.Create)
		transcriptions.GET("/:id", h.Get)
		transcriptions.GET("/:id/report", h.Report)
	}

	router.GET("/runs", h.ListRuns)
	router.GET("/engines", h.Engines)
}
