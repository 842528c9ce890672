package router

import (
	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/handler"
)

func MessageRouter(router *gin.RouterGroup, handler *handler.SmartReplyHandler) {
	router.POST("/analyze", handler.Analyze)
}
