package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/http/dto"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

type ThreadHandler struct {
	conversations service.ConversationService
}

func NewThreadHandler(conversations service.ConversationService) *ThreadHandler {
	return &ThreadHandler{conversations: conversations}
}

func (h *ThreadHandler) GetContext(c *gin.Context) {
	ctx := c.Request.Context()

	workspaceID, err := strconv.ParseInt(c.Query("workspace_id"), 10, 64)
	if err != nil || workspaceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id query parameter is required"})
		return
	}

	threadID := c.Param("threadId")

	conversationContext, err := h.conversations.GetContext(ctx, workspaceID, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "thread context not found"})
			return
		}
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to load thread context", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load thread context"})
		return
	}

	c.JSON(http.StatusOK, dto.ToContextResponse(conversationContext))
}

func (h *ThreadHandler) UpdateStage(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid stage update request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID := c.Param("threadId")

	updated, err := h.conversations.UpdateStage(ctx, req.WorkspaceID, threadID, model.Stage(req.Stage), req.Reopen)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "thread context not found"})
		case errors.Is(err, service.ErrStageRegression):
			c.JSON(http.StatusConflict, gin.H{"error": "stage regression requires reopen"})
		default:
			slog.ErrorContext(ctx, "failed to update stage", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update stage"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToContextResponse(updated))
}
