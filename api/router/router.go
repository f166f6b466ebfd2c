package router

import (
	"net/http"

	"tdr-review/api/handler"
	"tdr-review/api/middleware"

	"github.com/gin-gonic/gin"
)

// New builds the engine with request ids, access logs and panic recovery.
func New(projectH *handler.ProjectHandler, documentH *handler.DocumentHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Recovery())
	RegisterRoutes(r, projectH, documentH)
	return r
}

func RegisterRoutes(r *gin.Engine, projectH *handler.ProjectHandler, documentH *handler.DocumentHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		projects := api.Group("/projects")
		{
			projects.POST("", projectH.Create)
			projects.GET("", projectH.List)
			projects.GET("/:id", projectH.Get)
			projects.DELETE("/:id", projectH.Delete)
			projects.POST("/:id/documents", projectH.RegisterDocument)
			projects.GET("/:id/documents", projectH.ListDocuments)
		}
		documents := api.Group("/documents")
		{
			documents.GET("/:id", documentH.Get)
			documents.POST("/:id/extract", documentH.Extract)
			documents.GET("/:id/analysis", documentH.Analysis)
		}
		requirements := api.Group("/requirements")
		{
			requirements.GET("/search", documentH.SearchRequirements)
		}
	}
}
