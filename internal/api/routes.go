package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/IshaanNene/GapFill/internal/config"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(cfg *config.APIConfig, s *Server) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(s.logger))

	router.GET("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/enrich", s.handleEnrich)
		v1.POST("/locate", s.handleLocate)
		v1.POST("/sync", s.handleSync)
		v1.GET("/jobs", s.handleListJobs)
		v1.GET("/jobs/:id", s.handleGetJob)
	}

	return router
}

func newJobID() string {
	return uuid.NewString()
}
