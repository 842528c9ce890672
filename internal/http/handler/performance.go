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

type PerformanceHandler struct {
	performance service.PerformanceService
}

func NewPerformanceHandler(performance service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

func (h *PerformanceHandler) SelectSuggestion(c *gin.Context) {
	ctx := c.Request.Context()

	suggestionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid suggestion id"})
		return
	}

	var req dto.SelectSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid selection request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.performance.RecordSelection(ctx, req.WorkspaceID, suggestionID, req.WasEdited, req.FinalContent)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		case errors.Is(err, service.ErrSelectionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "another suggestion is already selected"})
		default:
			slog.ErrorContext(ctx, "failed to record selection", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record selection"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "selected"})
}

func (h *PerformanceHandler) RecordSend(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid send request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	performanceID, err := h.performance.RecordSend(ctx, service.SendParams{
		WorkspaceID:   req.WorkspaceID,
		SuggestionID:  req.SuggestionID,
		SentMessageID: req.SentMessageID,
		Channel:       model.Channel(req.Channel),
		Content:       req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		default:
			slog.ErrorContext(ctx, "failed to record send", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record send"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.RecordSendResponse{PerformanceID: performanceID})
}
