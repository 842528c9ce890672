package router

import (
	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/handler"
)

func SuggestionRouter(router *gin.RouterGroup, handler *handler.PerformanceHandler) {
	router.POST("/:id/select", handler.SelectSuggestion)
}

func SendRouter(router *gin.RouterGroup, handler *handler.PerformanceHandler) {
	router.POST("", handler.RecordSend)
}
