package dto

import (
	"time"

	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
)

type AnalyzeMessageRequest struct {
	WorkspaceID        int64   `json:"workspace_id" binding:"required"`
	MessageID          string  `json:"message_id" binding:"required,max=255"`
	Channel            string  `json:"channel" binding:"required"`
	Text               string  `json:"text" binding:"required"`
	SenderName         *string `json:"sender_name,omitempty" binding:"omitempty,max=255"`
	SenderEmail        *string `json:"sender_email,omitempty" binding:"omitempty,email,max=255"`
	ThreadID           *string `json:"thread_id,omitempty" binding:"omitempty,max=255"`
	IncludeSuggestions bool    `json:"include_suggestions"`
	SuggestionCount    int     `json:"suggestion_count" binding:"omitempty,min=1,max=5"`
}

type AnalysisResponse struct {
	ID                int64                     `json:"id,string"`
	MessageID         string                    `json:"message_id"`
	Channel           string                    `json:"channel"`
	Sentiment         string                    `json:"sentiment"`
	SentimentScore    float64                   `json:"sentiment_score"`
	Intent            string                    `json:"intent"`
	IntentConfidence  float64                   `json:"intent_confidence"`
	Topics            []string                  `json:"topics"`
	Entities          model.Entities            `json:"entities"`
	Signals           model.ConversationSignals `json:"signals"`
	PriorMessageCount int                       `json:"prior_message_count"`
	CreatedAt         time.Time                 `json:"created_at"`
}

func ToAnalysisResponse(a *model.MessageAnalysis) *AnalysisResponse {
	return &AnalysisResponse{
		ID:                a.ID,
		MessageID:         a.MessageID,
		Channel:           string(a.Channel),
		Sentiment:         string(a.Sentiment),
		SentimentScore:    a.SentimentScore,
		Intent:            string(a.Intent),
		IntentConfidence:  a.IntentConfidence,
		Topics:            a.Topics,
		Entities:          a.Entities,
		Signals:           a.Signals,
		PriorMessageCount: a.PriorMessageCount,
		CreatedAt:         a.CreatedAt,
	}
}

type SuggestionResponse struct {
	ID                      int64    `json:"id,string"`
	Type                    string   `json:"type"`
	Tone                    string   `json:"tone"`
	Content                 string   `json:"content"`
	RelevanceScore          float64  `json:"relevance_score"`
	PersonalizationScore    float64  `json:"personalization_score"`
	PersonalizationElements []string `json:"personalization_elements"`
}

func ToSuggestionResponse(s *model.ReplySuggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:                      s.ID,
		Type:                    string(s.Type),
		Tone:                    string(s.Tone),
		Content:                 s.Content,
		RelevanceScore:          s.RelevanceScore,
		PersonalizationScore:    s.PersonalizationScore,
		PersonalizationElements: s.PersonalizationElements,
	}
}

type SmartReplyResponse struct {
	Analysis                *AnalysisResponse    `json:"analysis"`
	Context                 *ContextResponse     `json:"context,omitempty"`
	Suggestions             []SuggestionResponse `json:"suggestions"`
	RecommendedSuggestionID *int64               `json:"recommended_suggestion_id,string,omitempty"`
	SuggestionsFailed       bool                 `json:"suggestions_failed"`
}

func ToSmartReplyResponse(r *service.SmartReplyResult) *SmartReplyResponse {
	resp := &SmartReplyResponse{
		Analysis:                ToAnalysisResponse(r.Analysis),
		Suggestions:             make([]SuggestionResponse, 0, len(r.Suggestions)),
		RecommendedSuggestionID: r.RecommendedSuggestionID,
		SuggestionsFailed:       r.SuggestionsFailed,
	}
	if r.Context != nil {
		resp.Context = ToContextResponse(r.Context)
	}
	for _, s := range r.Suggestions {
		resp.Suggestions = append(resp.Suggestions, ToSuggestionResponse(s))
	}
	return resp
}
