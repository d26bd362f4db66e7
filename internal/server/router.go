package server

import (
	"github.com/gin-gonic/gin"

	"github.com/meroguru/meroguru-backend/internal/handlers"
	"github.com/meroguru/meroguru-backend/internal/metrics"
	"github.com/meroguru/meroguru-backend/internal/middleware"
)

type RouterConfig struct {
	ChatHandler      *handlers.ChatHandler
	ThreadHandler    *handlers.ThreadHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	HealthHandler    *handlers.HealthHandler
	Monitor          *metrics.Monitor
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORS())
	if cfg.Monitor != nil {
		router.Use(middleware.RequestMetrics(cfg.Monitor))
	}

	api := router.Group("/api")
	{
		// Chat
		api.POST("/chat", cfg.ChatHandler.Chat)

		// Threads
		api.GET("/threads", cfg.ThreadHandler.ListThreads)
		api.GET("/threads/:id", cfg.ThreadHandler.ListMessages)
		api.DELETE("/threads/:id", cfg.ThreadHandler.DeleteThread)

		// Knowledge base
		api.GET("/knowledge", cfg.KnowledgeHandler.ListEntries)
		api.POST("/knowledge", cfg.KnowledgeHandler.CreateEntry)
		api.PUT("/knowledge/:id", cfg.KnowledgeHandler.UpdateEntry)
		api.DELETE("/knowledge/:id", cfg.KnowledgeHandler.DeleteEntry)
		api.GET("/knowledge/grades", cfg.KnowledgeHandler.ListGrades)
		api.GET("/knowledge/subjects", cfg.KnowledgeHandler.ListSubjects)

		// Health
		api.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	return router
}
