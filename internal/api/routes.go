package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title RepoPulse API
// @version 1.0
// @description Aggregated GitHub repository state with rate-limit-aware synchronization
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// SetupRouter configures the API routes
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// API documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	{
		repositories := v1.Group("/repositories")
		{
			repositories.GET("", h.ListRepositories)
			repositories.POST("", h.AddRepository)
			repositories.GET("/:owner/:repo", h.GetStoredSnapshot)
			repositories.DELETE("/:owner/:repo", h.RemoveRepository)
		}

		v1.GET("/repos/:owner/:repo", h.GetRepository)
		v1.POST("/refresh", h.TriggerRefresh)
		v1.GET("/diagnostics", h.GetDiagnostics)
		v1.POST("/cache/clear", h.ClearCache)
	}

	return r
}
