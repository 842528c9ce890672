package model

import "time"

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
	ChannelTwitter  Channel = "twitter"
	ChannelFacebook Channel = "facebook"
	ChannelSMS      Channel = "sms"
)

// ValidChannel reports whether c is one of the supported channels.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelEmail, ChannelLinkedIn, ChannelTwitter, ChannelFacebook, ChannelSMS:
		return true
	}
	return false
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// SentimentRank maps a sentiment label onto the one-dimensional scale used
// for trend computation: negative < neutral = mixed < positive.
func SentimentRank(s Sentiment) int {
	switch s {
	case SentimentNegative:
		return -1
	case SentimentPositive:
		return 1
	default: // neutral, mixed
		return 0
	}
}

type Intent string

const (
	IntentQuestion       Intent = "question"
	IntentComplaint      Intent = "complaint"
	IntentInterest       Intent = "interest"
	IntentObjection      Intent = "objection"
	IntentMeetingRequest Intent = "meeting_request"
	IntentPricingInquiry Intent = "pricing_inquiry"
	IntentFeatureRequest Intent = "feature_request"
	IntentSupportRequest Intent = "support_request"
	IntentUnsubscribe    Intent = "unsubscribe"
	IntentOther          Intent = "other"
)

// ValidIntent reports whether i is one of the closed intent values.
func ValidIntent(i Intent) bool {
	switch i {
	case IntentQuestion, IntentComplaint, IntentInterest, IntentObjection,
		IntentMeetingRequest, IntentPricingInquiry, IntentFeatureRequest,
		IntentSupportRequest, IntentUnsubscribe, IntentOther:
		return true
	}
	return false
}

// Entities holds the named entity groups extracted from a message.
// Groups are unordered and may be empty.
type Entities struct {
	People    []string `json:"people,omitempty"`
	Companies []string `json:"companies,omitempty"`
	Dates     []string `json:"dates,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Products  []string `json:"products,omitempty"`
}

// ConversationSignals are sales-relevant extractions that feed the thread
// context: what the prospect is struggling with, what they want, who decides,
// and which competitors came up.
type ConversationSignals struct {
	PainPoints     []string `json:"pain_points,omitempty"`
	Objectives     []string `json:"objectives,omitempty"`
	DecisionMakers []string `json:"decision_makers,omitempty"`
	Competitors    []string `json:"competitors,omitempty"`
}

// MessageAnalysis is the immutable record of one inbound message's
// classification. Created once, never mutated.
type MessageAnalysis struct {
	CreatedAt           time.Time           `json:"created_at"`
	MessageID           string              `json:"message_id"`
	Channel             Channel             `json:"channel"`
	RawText             string              `json:"raw_text"`
	Sentiment           Sentiment           `json:"sentiment"`
	Intent              Intent              `json:"intent"`
	Model               string              `json:"model"`
	Topics              []string            `json:"topics"`
	Entities            Entities            `json:"entities"`
	Signals             ConversationSignals `json:"signals"`
	ConversationSummary *string             `json:"conversation_summary,omitempty"`
	ID                  int64               `json:"id"`
	WorkspaceID         int64               `json:"workspace_id"`
	SentimentScore      float64             `json:"sentiment_score"`
	IntentConfidence    float64             `json:"intent_confidence"`
	PriorMessageCount   int                 `json:"prior_message_count"`
	TokensUsed          int                 `json:"tokens_used"`
}
