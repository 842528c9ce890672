package brain_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"replyloop.app/insight/common/llm"
	"replyloop.app/insight/internal/brain"
	"replyloop.app/insight/internal/model"
)

var _ = Describe("Generator", func() {
	var (
		mock     *mockCompletionClient
		ctx      context.Context
		analysis *model.MessageAnalysis
	)

	BeforeEach(func() {
		mock = &mockCompletionClient{}
		ctx = context.Background()
		analysis = &model.MessageAnalysis{
			RawText:   "What's your pricing for 50 seats?",
			Sentiment: model.SentimentNeutral,
			Intent:    model.IntentPricingInquiry,
			Topics:    []string{"pricing"},
		}
	})

	newGenerator := func() brain.Generator {
		return brain.NewGenerator(mock, brain.GeneratorConfig{MaxParallel: 2})
	}

	It("requires an analysis", func() {
		_, err := newGenerator().Generate(ctx, brain.GenerateParams{MaxSuggestions: 2})
		Expect(err).To(HaveOccurred())
		Expect(mock.calls()).To(Equal(0))
	})

	It("generates one scored suggestion per planned candidate", func() {
		mock.completeFn = func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Text: "Our pricing for 50 seats starts at $40 each.", TokensUsed: 80}, nil
		}

		suggestions, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			MaxSuggestions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(suggestions).To(HaveLen(2))
		Expect(mock.calls()).To(Equal(2))

		Expect(suggestions[0].Type).To(Equal(model.SuggestionDetailedResponse))
		Expect(suggestions[0].Tone).To(Equal(model.ToneProfessional))
		Expect(suggestions[1].Type).To(Equal(model.SuggestionMeetingProposal))
		Expect(suggestions[1].Tone).To(Equal(model.ToneFriendly))

		for _, s := range suggestions {
			// base 0.5 + "pricing"/"price" keywords + "pricing" topic
			Expect(s.RelevanceScore).To(BeNumerically(">", 0.5))
			Expect(s.Model).To(Equal("test-model"))
			Expect(s.TokensUsed).To(Equal(80))
		}
	})

	It("skips a failed candidate and keeps the rest", func() {
		mock.completeFn = func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			if strings.Contains(req.Prompt, "meeting-proposing") {
				return nil, context.DeadlineExceeded
			}
			return &llm.Completion{Text: "Our pricing starts at $40 per seat."}, nil
		}

		suggestions, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			MaxSuggestions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(suggestions).To(HaveLen(1))
		Expect(suggestions[0].Type).To(Equal(model.SuggestionDetailedResponse))
	})

	It("returns ErrGenerationFailed when every candidate fails", func() {
		mock.completeFn = func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
			return nil, errors.New("boom")
		}

		_, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			MaxSuggestions: 2,
		})
		Expect(errors.Is(err, brain.ErrGenerationFailed)).To(BeTrue())

		var engineErr *brain.EngineError
		Expect(errors.As(err, &engineErr)).To(BeTrue())
		Expect(engineErr.Retryable).To(BeTrue())
	})

	It("treats empty completions as candidate failures", func() {
		mock.completeFn = func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Text: "   "}, nil
		}

		_, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			MaxSuggestions: 1,
		})
		Expect(errors.Is(err, brain.ErrGenerationFailed)).To(BeTrue())
	})

	It("records detected personalization on each suggestion", func() {
		mock.completeFn = func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Text: "Hi Dana, our pricing starts at $40 per seat."}, nil
		}

		suggestions, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			SenderName:     "Dana",
			MaxSuggestions: 1,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(suggestions[0].PersonalizationElements).To(ContainElements(model.ElementName, model.ElementTopicReference))
		Expect(suggestions[0].PersonalizationScore).To(BeNumerically("~", 0.4, 1e-9))
	})

	It("leads with a closing draft once the thread is in negotiation", func() {
		mock.completeFn = func(_ context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
			return &llm.Completion{Text: "Shall we put together the order form?"}, nil
		}

		suggestions, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis:       analysis,
			Context:        &model.ConversationContext{Stage: model.StageNegotiation},
			MaxSuggestions: 2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(suggestions).To(HaveLen(2))
		Expect(suggestions[0].Type).To(Equal(model.SuggestionClosing))
		Expect(suggestions[0].Tone).To(Equal(model.ToneProfessional))
	})

	It("embeds stage and pain points when context is present", func() {
		var sawStage bool
		mock.completeFn = func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
			if strings.Contains(req.Prompt, "proposal stage") && strings.Contains(req.Prompt, "manual reporting") {
				sawStage = true
			}
			return &llm.Completion{Text: "Happy to walk through pricing."}, nil
		}

		_, err := newGenerator().Generate(ctx, brain.GenerateParams{
			Analysis: analysis,
			Context: &model.ConversationContext{
				Stage:      model.StageProposal,
				PainPoints: []string{"manual reporting"},
			},
			MaxSuggestions: 1,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(sawStage).To(BeTrue())
	})
})
