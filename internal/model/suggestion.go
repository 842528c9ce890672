package model

import "time"

// SuggestionType is the rhetorical shape of a candidate reply.
type SuggestionType string

const (
	SuggestionQuickReply        SuggestionType = "quick_reply"
	SuggestionDetailedResponse  SuggestionType = "detailed_response"
	SuggestionFollowUp          SuggestionType = "follow_up"
	SuggestionObjectionHandling SuggestionType = "objection_handling"
	SuggestionMeetingProposal   SuggestionType = "meeting_proposal"
	SuggestionClosing           SuggestionType = "closing"
)

type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
	ToneFormal       Tone = "formal"
	ToneEnthusiastic Tone = "enthusiastic"
)

// Personalization element names recorded on a suggestion when the generated
// text actually used the corresponding signal.
const (
	ElementName                = "name"
	ElementCompany             = "company"
	ElementTopicReference      = "topic_reference"
	ElementPreviousInteraction = "previous_interaction"
	ElementDateReference       = "date_reference"
)

// ReplySuggestion is one generated reply candidate for an analysis.
// Selection is a one-way event: was_selected never flips back to false, and
// at most one suggestion per analysis is selected.
type ReplySuggestion struct {
	CreatedAt               time.Time      `json:"created_at"`
	SelectedAt              *time.Time     `json:"selected_at,omitempty"`
	FinalContent            *string        `json:"final_content,omitempty"`
	Type                    SuggestionType `json:"type"`
	Tone                    Tone           `json:"tone"`
	Content                 string         `json:"content"`
	Model                   string         `json:"model"`
	PersonalizationElements []string       `json:"personalization_elements"`
	ID                      int64          `json:"id"`
	AnalysisID              int64          `json:"analysis_id"`
	WorkspaceID             int64          `json:"workspace_id"`
	LatencyMS               int64          `json:"latency_ms"`
	RelevanceScore          float64        `json:"relevance_score"`
	PersonalizationScore    float64        `json:"personalization_score"`
	TokensUsed              int            `json:"tokens_used"`
	WasSelected             bool           `json:"was_selected"`
	WasEdited               bool           `json:"was_edited"`
}

// CombinedScore is the ranking score: the mean of relevance and
// personalization.
func (s *ReplySuggestion) CombinedScore() float64 {
	return (s.RelevanceScore + s.PersonalizationScore) / 2
}
