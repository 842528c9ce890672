package dto

import (
	"time"

	"replyloop.app/insight/internal/model"
)

type UpdateStageRequest struct {
	WorkspaceID int64  `json:"workspace_id" binding:"required"`
	Stage       string `json:"stage" binding:"required"`
	Reopen      bool   `json:"reopen"`
}

type ContextResponse struct {
	ID               int64     `json:"id,string"`
	ThreadID         string    `json:"thread_id"`
	MessageCount     int       `json:"message_count"`
	LastMessageAt    time.Time `json:"last_message_at"`
	OverallSentiment string    `json:"overall_sentiment"`
	SentimentTrend   string    `json:"sentiment_trend"`
	Stage            string    `json:"stage,omitempty"`
	PainPoints       []string  `json:"pain_points"`
	Objectives       []string  `json:"objectives"`
	DecisionMakers   []string  `json:"decision_makers"`
	Competitors      []string  `json:"competitors"`
}

func ToContextResponse(c *model.ConversationContext) *ContextResponse {
	return &ContextResponse{
		ID:               c.ID,
		ThreadID:         c.ThreadID,
		MessageCount:     c.MessageCount,
		LastMessageAt:    c.LastMessageAt,
		OverallSentiment: string(c.OverallSentiment),
		SentimentTrend:   string(c.SentimentTrend),
		Stage:            string(c.Stage),
		PainPoints:       c.PainPoints,
		Objectives:       c.Objectives,
		DecisionMakers:   c.DecisionMakers,
		Competitors:      c.Competitors,
	}
}
