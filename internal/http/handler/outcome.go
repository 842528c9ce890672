package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"replyloop.app/insight/internal/http/dto"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/queue"
)

// OutcomeHandler accepts outcome callbacks and buffers them onto the
// stream. The worker applies them; nothing is written here.
type OutcomeHandler struct {
	producer    queue.Producer
	traceHeader string
}

func NewOutcomeHandler(producer queue.Producer, traceHeader string) *OutcomeHandler {
	return &OutcomeHandler{
		producer:    producer,
		traceHeader: traceHeader,
	}
}

func (h *OutcomeHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid outcome request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject garbage before it reaches the stream; a bad outcome value
	// would only bounce to the DLQ on the other side.
	if !model.ValidOutcome(model.Outcome(req.Outcome)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outcome value"})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	event := queue.OutcomeEvent{
		PerformanceID:       req.PerformanceID,
		Outcome:             req.Outcome,
		GotResponse:         req.GotResponse,
		ResponseTimeSeconds: req.ResponseTimeSeconds,
		ResponseSentiment:   req.ResponseSentiment,
		LedToOpportunity:    req.LedToOpportunity,
		LedToDeal:           req.LedToDeal,
		DealValue:           req.DealValue,
	}
	if traceID != "" {
		event.TraceID = &traceID
	}

	if err := h.producer.Enqueue(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue outcome", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue outcome"})
		return
	}

	c.JSON(http.StatusAccepted, dto.RecordOutcomeResponse{Queued: true})
}
