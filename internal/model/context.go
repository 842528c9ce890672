package model

import "time"

// Stage is a conversation's position in the sales progression. Stages move
// forward only; moving backward requires an explicit reopen.
type Stage string

const (
	StageInitialContact Stage = "initial_contact"
	StageQualification  Stage = "qualification"
	StageDiscovery      Stage = "discovery"
	StageProposal       Stage = "proposal"
	StageNegotiation    Stage = "negotiation"
	StageClosing        Stage = "closing"
	StageClosedWon      Stage = "closed_won"
	StageClosedLost     Stage = "closed_lost"
)

// stageOrder gives each stage its position in the progression. The zero
// Stage ("", unset) sits before initial_contact so any real stage counts
// as an advance.
var stageOrder = map[Stage]int{
	StageInitialContact: 0,
	StageQualification:  1,
	StageDiscovery:      2,
	StageProposal:       3,
	StageNegotiation:    4,
	StageClosing:        5,
	StageClosedWon:      6,
	StageClosedLost:     6,
}

// StageRank returns the stage's position in the progression, -1 for unset.
func StageRank(s Stage) int {
	if rank, ok := stageOrder[s]; ok {
		return rank
	}
	return -1
}

// ValidStage reports whether s names a real stage.
func ValidStage(s Stage) bool {
	_, ok := stageOrder[s]
	return ok
}

type SentimentTrend string

const (
	TrendImproving SentimentTrend = "improving"
	TrendDeclining SentimentTrend = "declining"
	TrendStable    SentimentTrend = "stable"
)

// ConversationContext is the one mutable record per conversation thread.
// It accumulates what the engine has learned across messages: counters,
// the latest sentiment transition, and grow-only signal sets.
type ConversationContext struct {
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	LastMessageAt    time.Time      `json:"last_message_at"`
	ThreadID         string         `json:"thread_id"`
	Stage            Stage          `json:"stage,omitempty"`
	OverallSentiment Sentiment      `json:"overall_sentiment"`
	SentimentTrend   SentimentTrend `json:"sentiment_trend"`
	PainPoints       []string       `json:"pain_points"`
	Objectives       []string       `json:"objectives"`
	DecisionMakers   []string       `json:"decision_makers"`
	Competitors      []string       `json:"competitors"`
	ID               int64          `json:"id"`
	WorkspaceID      int64          `json:"workspace_id"`
	MessageCount     int            `json:"message_count"`
}

// MergeUnique appends the elements of add that are not already in existing,
// preserving order. Matching is case-sensitive and exact: the accumulated
// sets grow, they never shrink or rewrite.
func MergeUnique(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	out := existing
	for _, v := range add {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
