// Package router wires the GraphRAG HTTP routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/graphrag/internal/graphrag/biz"
	"github.com/kart-io/graphrag/internal/graphrag/handler"
)

// Register registers the GraphRAG routes on the engine.
func Register(engine *gin.Engine, svc biz.Service) {
	logger.Info("Registering GraphRAG routes...")

	h := handler.NewGraphRAGHandler(svc)

	engine.GET("/healthz", h.Health)
	engine.GET("/metrics", h.Metrics)

	v1 := engine.Group("/v1")
	{
		v1.POST("/query", h.Query)
		v1.POST("/ingest/document", h.Ingest)
		v1.DELETE("/documents/:id", h.DeleteDocument)
		v1.GET("/stats", h.Stats)
		v1.GET("/graph/path", h.EntityPath)
	}
}
