package model

import "time"

// Outcome is the categorical result of a sent reply, reported by whatever
// external system detects the response or deal event.
type Outcome string

const (
	OutcomePositiveReply Outcome = "positive_reply"
	OutcomeNegativeReply Outcome = "negative_reply"
	OutcomeNoResponse    Outcome = "no_response"
	OutcomeMeetingBooked Outcome = "meeting_booked"
	OutcomeDealWon       Outcome = "deal_won"
	OutcomeDealLost      Outcome = "deal_lost"
	OutcomeUnsubscribed  Outcome = "unsubscribed"
)

// ValidOutcome reports whether o is one of the closed outcome values.
func ValidOutcome(o Outcome) bool {
	switch o {
	case OutcomePositiveReply, OutcomeNegativeReply, OutcomeNoResponse,
		OutcomeMeetingBooked, OutcomeDealWon, OutcomeDealLost, OutcomeUnsubscribed:
		return true
	}
	return false
}

// ReplyPerformance tracks one sent message through to its outcome. Created
// pending at send time; outcome fields are written exactly once, after which
// the record is terminal.
type ReplyPerformance struct {
	CreatedAt           time.Time  `json:"created_at"`
	OutcomeRecordedAt   *time.Time `json:"outcome_recorded_at,omitempty"`
	SentMessageID       string     `json:"sent_message_id"`
	Channel             Channel    `json:"channel"`
	Content             string     `json:"content"`
	ResponseSentiment   *Sentiment `json:"response_sentiment,omitempty"`
	Outcome             *Outcome   `json:"outcome,omitempty"`
	SuggestionID        *int64     `json:"suggestion_id,omitempty"`
	ResponseTimeSeconds *int64     `json:"response_time_seconds,omitempty"`
	DealValue           *float64   `json:"deal_value,omitempty"`
	ID                  int64      `json:"id"`
	WorkspaceID         int64      `json:"workspace_id"`
	GotResponse         bool       `json:"got_response"`
	LedToOpportunity    bool       `json:"led_to_opportunity"`
	LedToDeal           bool       `json:"led_to_deal"`
	OutcomeRecorded     bool       `json:"outcome_recorded"`
}
