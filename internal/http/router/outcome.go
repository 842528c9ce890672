package router

import (
	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/handler"
)

func OutcomeRouter(router *gin.RouterGroup, handler *handler.OutcomeHandler) {
	router.POST("", handler.Record)
}
