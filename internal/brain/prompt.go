package brain

import (
	"encoding/json"
	"fmt"
	"strings"

	"replyloop.app/insight/common/llm"
	"replyloop.app/insight/internal/model"
)

// classifyPrompt builds the extraction prompt for one inbound message. The
// expected JSON shape is embedded as a schema so the model has no room to
// invent its own field names.
func classifyPrompt(params ClassifyParams) string {
	var b strings.Builder

	b.WriteString("You analyze inbound sales conversation messages for a cold-outreach platform.\n")
	b.WriteString("Classify the message below and extract structured data.\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- sentiment is one of: positive, negative, neutral, mixed.\n")
	b.WriteString("- sentiment_score is -1.0..1.0 and its sign must match the sentiment label (0 for neutral).\n")
	b.WriteString("- intent is one of: question, complaint, interest, objection, meeting_request, pricing_inquiry, feature_request, support_request, unsubscribe, other.\n")
	b.WriteString("- topics are short phrases, most prominent first.\n")
	b.WriteString("- entities group proper nouns: people, companies, dates, locations, products.\n")
	b.WriteString("- signals capture sales context: pain_points, objectives, decision_makers, competitors.\n")
	b.WriteString("- conversation_summary is one sentence on where the conversation stands after this message.\n")
	b.WriteString("- Omit nothing you can support with the text; invent nothing you cannot.\n\n")

	if params.SenderName != nil && *params.SenderName != "" {
		fmt.Fprintf(&b, "Sender: %s\n", *params.SenderName)
	}
	if params.PriorContext != nil && *params.PriorContext != "" {
		fmt.Fprintf(&b, "Conversation so far: %s\n", *params.PriorContext)
	}

	fmt.Fprintf(&b, "\nMessage:\n%s\n\n", params.Text)

	b.WriteString("Respond with a single JSON object matching this schema, no prose:\n")
	b.WriteString(classificationSchema())

	return b.String()
}

func classificationSchema() string {
	schema := llm.GenerateSchemaFrom(&ClassificationResult{})
	data, err := json.Marshal(schema)
	if err != nil {
		// The schema is reflected from a static struct; a marshal failure
		// is a programming error, not a runtime condition.
		panic(fmt.Sprintf("marshaling classification schema: %v", err))
	}
	return string(data)
}

// generationPrompt builds the prompt for one reply candidate. It embeds the
// original message, the classification, whatever thread context exists, and
// up to two same-intent templates as style examples.
func generationPrompt(c Candidate, p GenerateParams, senderName string) string {
	var b strings.Builder

	b.WriteString("You write reply drafts for a sales representative in a cold-outreach platform.\n")
	fmt.Fprintf(&b, "Write a %s reply in a %s tone to the message below.\n\n", describeType(c.Type), c.Tone)

	if senderName != "" {
		fmt.Fprintf(&b, "The message is from %s.\n", senderName)
	}
	fmt.Fprintf(&b, "Their sentiment reads %s and their intent is %s.\n", p.Analysis.Sentiment, p.Analysis.Intent)
	if len(p.Analysis.Topics) > 0 {
		fmt.Fprintf(&b, "Topics raised: %s.\n", strings.Join(p.Analysis.Topics, ", "))
	}

	if p.Context != nil {
		if p.Context.Stage != "" {
			fmt.Fprintf(&b, "The conversation is at the %s stage.\n", p.Context.Stage)
		}
		if len(p.Context.PainPoints) > 0 {
			fmt.Fprintf(&b, "Known pain points: %s.\n", strings.Join(p.Context.PainPoints, ", "))
		}
		if len(p.Context.Objectives) > 0 {
			fmt.Fprintf(&b, "Their objectives: %s.\n", strings.Join(p.Context.Objectives, ", "))
		}
	}

	fmt.Fprintf(&b, "\nMessage:\n%s\n", p.Analysis.RawText)

	examples := sameIntentTemplates(p.Templates, p.Analysis.Intent, 2)
	if len(examples) > 0 {
		b.WriteString("\nStyle examples from this workspace:\n")
		for _, t := range examples {
			fmt.Fprintf(&b, "---\n%s\n", t.Content)
		}
		b.WriteString("---\n")
	}

	b.WriteString("\nReply with the draft text only, no preamble and no subject line.\n")

	return b.String()
}

// sameIntentTemplates filters the library to the analysis intent and keeps
// at most limit entries. The store already orders by times_used descending,
// so the first matches are the workspace's most proven wording.
func sameIntentTemplates(templates []model.MessageTemplate, intent model.Intent, limit int) []model.MessageTemplate {
	var out []model.MessageTemplate
	for _, t := range templates {
		if t.Intent != intent {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func describeType(t model.SuggestionType) string {
	switch t {
	case model.SuggestionQuickReply:
		return "brief, direct"
	case model.SuggestionDetailedResponse:
		return "thorough, information-rich"
	case model.SuggestionFollowUp:
		return "follow-up"
	case model.SuggestionObjectionHandling:
		return "concern-addressing"
	case model.SuggestionMeetingProposal:
		return "meeting-proposing"
	case model.SuggestionClosing:
		return "deal-closing"
	default:
		return string(t)
	}
}
