package dto

type SelectSuggestionRequest struct {
	WorkspaceID  int64   `json:"workspace_id" binding:"required"`
	WasEdited    bool    `json:"was_edited"`
	FinalContent *string `json:"final_content,omitempty"`
}

type RecordSendRequest struct {
	WorkspaceID   int64   `json:"workspace_id" binding:"required"`
	SuggestionID  *int64  `json:"suggestion_id,string,omitempty"`
	SentMessageID string  `json:"sent_message_id" binding:"required,max=255"`
	Channel       string  `json:"channel" binding:"required"`
	Content       string  `json:"content" binding:"required"`
}

type RecordSendResponse struct {
	PerformanceID int64 `json:"performance_id,string"`
}

type RecordOutcomeRequest struct {
	PerformanceID       int64    `json:"performance_id,string" binding:"required"`
	Outcome             string   `json:"outcome" binding:"required"`
	GotResponse         bool     `json:"got_response"`
	ResponseTimeSeconds *int64   `json:"response_time_seconds,omitempty"`
	ResponseSentiment   *string  `json:"response_sentiment,omitempty"`
	LedToOpportunity    bool     `json:"led_to_opportunity"`
	LedToDeal           bool     `json:"led_to_deal"`
	DealValue           *float64 `json:"deal_value,omitempty"`
}

type RecordOutcomeResponse struct {
	Queued bool `json:"queued"`
}
