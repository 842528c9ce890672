package brain

import (
	"strings"

	"replyloop.app/insight/internal/model"
)

// intentKeywords lists, per intent, the words a relevant reply is expected
// to touch. Matching is naive case-insensitive substring search; the policy
// trades precision for predictability and zero inference cost.
var intentKeywords = map[model.Intent][]string{
	model.IntentQuestion:       {"answer", "help", "clarify"},
	model.IntentComplaint:      {"sorry", "apologize", "understand", "resolve"},
	model.IntentInterest:       {"glad", "great", "demo", "show"},
	model.IntentObjection:      {"understand", "however", "value", "consider"},
	model.IntentMeetingRequest: {"calendar", "schedule", "available", "call"},
	model.IntentPricingInquiry: {"pricing", "price", "cost", "plan", "quote"},
	model.IntentFeatureRequest: {"feature", "roadmap", "feedback", "team"},
	model.IntentSupportRequest: {"support", "help", "resolve", "assist"},
	model.IntentUnsubscribe:    {"unsubscribe", "remove", "apologize"},
	model.IntentOther:          {"thanks", "help"},
}

// previousInteractionPhrases are the markers of a reply that references
// earlier conversation turns.
var previousInteractionPhrases = []string{"previous", "last time"}

// DetectPersonalization returns the personalization element names actually
// present in the generated content, in the fixed detection order. Each of
// the five detectable signals counts at most once.
func DetectPersonalization(content, senderName string, analysis *model.MessageAnalysis) []string {
	lower := strings.ToLower(content)

	var elements []string

	if senderName != "" && strings.Contains(content, senderName) {
		elements = append(elements, model.ElementName)
	}
	if containsAny(content, analysis.Entities.Companies) {
		elements = append(elements, model.ElementCompany)
	}
	if containsAnyFold(lower, analysis.Topics) {
		elements = append(elements, model.ElementTopicReference)
	}
	for _, phrase := range previousInteractionPhrases {
		if strings.Contains(lower, phrase) {
			elements = append(elements, model.ElementPreviousInteraction)
			break
		}
	}
	if containsAny(content, analysis.Entities.Dates) {
		elements = append(elements, model.ElementDateReference)
	}

	return elements
}

// PersonalizationScore is k/5 for k detected elements, capped at 1.0.
func PersonalizationScore(elements []string) float64 {
	score := float64(len(elements)) / 5.0
	if score > 1 {
		return 1
	}
	return score
}

// RelevanceScore starts at 0.5 and earns 0.1 per intent keyword and 0.1
// per analysis topic found in the content, capped at 1.0.
func RelevanceScore(content string, intent model.Intent, topics []string) float64 {
	lower := strings.ToLower(content)

	score := 0.5
	for _, kw := range intentKeywords[intent] {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	for _, topic := range topics {
		if topic != "" && strings.Contains(lower, strings.ToLower(topic)) {
			score += 0.1
		}
	}

	if score > 1 {
		return 1
	}
	return score
}

func containsAny(content string, values []string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(content, v) {
			return true
		}
	}
	return false
}

func containsAnyFold(lowerContent string, values []string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(lowerContent, strings.ToLower(v)) {
			return true
		}
	}
	return false
}
