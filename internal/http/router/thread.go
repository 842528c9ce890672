package router

import (
	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/handler"
)

func ThreadRouter(router *gin.RouterGroup, handler *handler.ThreadHandler) {
	router.GET("/:threadId/context", handler.GetContext)
	router.PUT("/:threadId/stage", handler.UpdateStage)
}
