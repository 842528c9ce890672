package router

import (
	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/handler"
	"replyloop.app/insight/internal/queue"
	"replyloop.app/insight/internal/service"
)

type RouterConfig struct {
	TraceHeaderName string
	IsProduction    bool
}

func SetupRoutes(router *gin.Engine, services *service.Services, producer queue.Producer, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		smartReplyHandler := handler.NewSmartReplyHandler(services.SmartReply())
		MessageRouter(v1.Group("/messages"), smartReplyHandler)

		threadHandler := handler.NewThreadHandler(services.Conversations())
		ThreadRouter(v1.Group("/threads"), threadHandler)

		performanceHandler := handler.NewPerformanceHandler(services.Performance())
		SuggestionRouter(v1.Group("/suggestions"), performanceHandler)
		SendRouter(v1.Group("/sends"), performanceHandler)

		outcomeHandler := handler.NewOutcomeHandler(producer, cfg.TraceHeaderName)
		OutcomeRouter(v1.Group("/outcomes"), outcomeHandler)
	}
}
