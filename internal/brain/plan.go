package brain

import "replyloop.app/insight/internal/model"

// Candidate is one (type, tone) slot of the generation plan.
type Candidate struct {
	Type model.SuggestionType
	Tone model.Tone
}

// intentSuggestionTypes is the fixed policy mapping an intent to the
// rhetorical shapes worth generating for it, in priority order. Kept as a
// map literal so the whole policy is auditable in one place.
var intentSuggestionTypes = map[model.Intent][]model.SuggestionType{
	model.IntentQuestion:       {model.SuggestionQuickReply, model.SuggestionDetailedResponse},
	model.IntentComplaint:      {model.SuggestionObjectionHandling, model.SuggestionDetailedResponse},
	model.IntentInterest:       {model.SuggestionDetailedResponse, model.SuggestionMeetingProposal, model.SuggestionFollowUp},
	model.IntentObjection:      {model.SuggestionObjectionHandling, model.SuggestionFollowUp},
	model.IntentMeetingRequest: {model.SuggestionMeetingProposal, model.SuggestionQuickReply},
	model.IntentPricingInquiry: {model.SuggestionDetailedResponse, model.SuggestionMeetingProposal},
	model.IntentFeatureRequest: {model.SuggestionDetailedResponse, model.SuggestionFollowUp},
	model.IntentSupportRequest: {model.SuggestionQuickReply, model.SuggestionDetailedResponse},
	model.IntentUnsubscribe:    {model.SuggestionQuickReply},
	model.IntentOther:          {model.SuggestionQuickReply, model.SuggestionFollowUp},
}

// intentTones pairs each intent with the tones to cycle through, parallel
// to intentSuggestionTypes.
var intentTones = map[model.Intent][]model.Tone{
	model.IntentQuestion:       {model.ToneFriendly, model.ToneProfessional},
	model.IntentComplaint:      {model.ToneProfessional, model.ToneFormal},
	model.IntentInterest:       {model.ToneEnthusiastic, model.ToneFriendly, model.ToneProfessional},
	model.IntentObjection:      {model.ToneProfessional, model.ToneFriendly},
	model.IntentMeetingRequest: {model.ToneFriendly, model.ToneProfessional},
	model.IntentPricingInquiry: {model.ToneProfessional, model.ToneFriendly},
	model.IntentFeatureRequest: {model.ToneFriendly, model.ToneProfessional},
	model.IntentSupportRequest: {model.ToneProfessional, model.ToneFriendly},
	model.IntentUnsubscribe:    {model.ToneProfessional},
	model.IntentOther:          {model.ToneFriendly, model.ToneCasual},
}

// buyingSignalIntents are the intents where a deal-closing draft makes
// sense once the thread is deep enough.
var buyingSignalIntents = map[model.Intent]bool{
	model.IntentInterest:       true,
	model.IntentPricingInquiry: true,
	model.IntentMeetingRequest: true,
}

// BuildPlan expands the per-intent tables into maxSuggestions candidates,
// cycling through both lists when more slots are requested than the table
// holds. Unknown intents plan like IntentOther. A buying-signal intent on a
// thread already in negotiation or closing leads with a deal-closing draft.
func BuildPlan(intent model.Intent, stage model.Stage, maxSuggestions int) []Candidate {
	if maxSuggestions <= 0 {
		return nil
	}

	types, ok := intentSuggestionTypes[intent]
	if !ok {
		types = intentSuggestionTypes[model.IntentOther]
	}
	tones, ok := intentTones[intent]
	if !ok {
		tones = intentTones[model.IntentOther]
	}

	count := maxSuggestions
	if len(types) < count {
		count = len(types)
	}

	plan := make([]Candidate, count)
	for i := range plan {
		plan[i] = Candidate{
			Type: types[i%len(types)],
			Tone: tones[i%len(tones)],
		}
	}

	if planClosing(intent, stage) {
		plan[0] = Candidate{Type: model.SuggestionClosing, Tone: model.ToneProfessional}
	}

	return plan
}

// planClosing reports whether the first slot should be a deal-closing
// draft. Won and lost threads are past the point where one helps.
func planClosing(intent model.Intent, stage model.Stage) bool {
	return buyingSignalIntents[intent] &&
		(stage == model.StageNegotiation || stage == model.StageClosing)
}
