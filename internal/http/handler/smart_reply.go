package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"replyloop.app/insight/internal/brain"
	"replyloop.app/insight/internal/http/dto"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
)

type SmartReplyHandler struct {
	service service.SmartReplyService
}

func NewSmartReplyHandler(service service.SmartReplyService) *SmartReplyHandler {
	return &SmartReplyHandler{service: service}
}

func (h *SmartReplyHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyzeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid analyze request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.AnalyzeMessage(ctx, service.SmartReplyParams{
		WorkspaceID:        req.WorkspaceID,
		MessageID:          req.MessageID,
		Channel:            model.Channel(req.Channel),
		Text:               req.Text,
		SenderName:         req.SenderName,
		SenderEmail:        req.SenderEmail,
		ThreadID:           req.ThreadID,
		IncludeSuggestions: req.IncludeSuggestions,
		SuggestionCount:    req.SuggestionCount,
	})
	if err != nil {
		var engineErr *brain.EngineError
		switch {
		case errors.Is(err, service.ErrValidation):
			slog.WarnContext(ctx, "analyze rejected", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &engineErr) && engineErr.Retryable:
			// Transient external-dependency failure; worth a client retry
			// with backoff.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not analyze message, retry"})
		default:
			slog.ErrorContext(ctx, "analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not analyze message"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSmartReplyResponse(result))
}
