package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"replyloop.app/insight/common/id"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/core/config"
	"replyloop.app/insight/internal/brain"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
)

var _ = Describe("SmartReplyService", func() {
	var (
		classifier  *mockClassifier
		generator   *mockGenerator
		analyses    *mockAnalysisStore
		contexts    *mockContextStore
		suggestions *mockSuggestionStore
		templates   *mockTemplateStore
		svc         service.SmartReplyService
		ctx         context.Context
	)

	engineCfg := config.EngineConfig{DefaultSuggestions: 3, MaxSuggestions: 5}

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		classifier = &mockClassifier{}
		generator = &mockGenerator{}
		analyses = &mockAnalysisStore{}
		contexts = &mockContextStore{}
		suggestions = &mockSuggestionStore{}
		templates = &mockTemplateStore{}
		ctx = context.Background()

		txRunner := &mockTxRunner{provider: &mockStoreProvider{suggestions: suggestions}}
		svc = service.NewSmartReplyService(
			classifier,
			generator,
			service.NewConversationService(contexts),
			analyses,
			templates,
			txRunner,
			engineCfg,
		)
	})

	validParams := func() service.SmartReplyParams {
		return service.SmartReplyParams{
			WorkspaceID: 7,
			MessageID:   "msg-1",
			Channel:     model.ChannelEmail,
			Text:        "What's your pricing for 50 seats?",
		}
	}

	classified := func() *brain.ClassificationResult {
		return &brain.ClassificationResult{
			Sentiment:           model.SentimentPositive,
			SentimentScore:      0.6,
			Intent:              model.IntentPricingInquiry,
			Topics:              []string{"pricing"},
			ConversationSummary: "Prospect asked about pricing for a 50-seat rollout.",
			Model:               "test-model",
			TokensUsed:          120,
		}
	}

	It("persists and returns the analysis", func() {
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			return classified(), nil
		}

		var persisted *model.MessageAnalysis
		analyses.createFn = func(_ context.Context, a *model.MessageAnalysis) error {
			persisted = a
			return nil
		}

		result, err := svc.AnalyzeMessage(ctx, validParams())
		Expect(err).NotTo(HaveOccurred())
		Expect(persisted).NotTo(BeNil())
		Expect(result.Analysis.ID).To(Equal(persisted.ID))
		Expect(result.Analysis.Intent).To(Equal(model.IntentPricingInquiry))
		Expect(result.Analysis.Model).To(Equal("test-model"))
		Expect(result.Analysis.ConversationSummary).To(HaveValue(Equal("Prospect asked about pricing for a 50-seat rollout.")))
		Expect(result.Context).To(BeNil())
		Expect(result.Suggestions).To(BeEmpty())
	})

	It("leaves the summary unset when the model returned none", func() {
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			c := classified()
			c.ConversationSummary = "   "
			return c, nil
		}

		result, err := svc.AnalyzeMessage(ctx, validParams())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Analysis.ConversationSummary).To(BeNil())
	})

	It("fails the whole call when classification fails", func() {
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			return nil, brain.NewRetryableError(brain.ErrClassifierUnavailable)
		}

		_, err := svc.AnalyzeMessage(ctx, validParams())
		Expect(errors.Is(err, brain.ErrClassifierUnavailable)).To(BeTrue())
	})

	It("fails the whole call when the analysis cannot be persisted", func() {
		analyses.createFn = func(_ context.Context, _ *model.MessageAnalysis) error {
			return errors.New("insert failed")
		}

		_, err := svc.AnalyzeMessage(ctx, validParams())
		Expect(err).To(HaveOccurred())
	})

	It("updates the thread context when a thread id is supplied", func() {
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			return classified(), nil
		}

		params := validParams()
		params.ThreadID = logger.Ptr("thread-1")

		result, err := svc.AnalyzeMessage(ctx, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Context).NotTo(BeNil())
		Expect(result.Context.MessageCount).To(Equal(1))
		Expect(result.Context.Stage).To(Equal(model.StageProposal))
	})

	It("feeds the prior context into the classifier and the analysis", func() {
		contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
			return &model.ConversationContext{
				MessageCount:     4,
				Stage:            model.StageDiscovery,
				OverallSentiment: model.SentimentNeutral,
				SentimentTrend:   model.TrendStable,
				PainPoints:       []string{"manual reporting"},
			}, nil
		}

		var hint *string
		classifier.analyzeFn = func(_ context.Context, p brain.ClassifyParams) (*brain.ClassificationResult, error) {
			hint = p.PriorContext
			return classified(), nil
		}

		params := validParams()
		params.ThreadID = logger.Ptr("thread-1")

		result, err := svc.AnalyzeMessage(ctx, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(hint).NotTo(BeNil())
		Expect(*hint).To(ContainSubstring("4 prior messages"))
		Expect(*hint).To(ContainSubstring("manual reporting"))
		Expect(result.Analysis.PriorMessageCount).To(Equal(4))
	})

	It("keeps the analysis when the context update fails", func() {
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			return classified(), nil
		}
		contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
			return nil, errors.New("db down")
		}
		contexts.createFn = func(_ context.Context, _ *model.ConversationContext) error {
			return errors.New("db down")
		}

		params := validParams()
		params.ThreadID = logger.Ptr("thread-1")

		result, err := svc.AnalyzeMessage(ctx, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Analysis).NotTo(BeNil())
		Expect(result.Context).To(BeNil())
	})

	Describe("with suggestions", func() {
		generated := func(scores ...float64) []*model.ReplySuggestion {
			out := make([]*model.ReplySuggestion, len(scores))
			for i, score := range scores {
				out[i] = &model.ReplySuggestion{
					Type:                 model.SuggestionDetailedResponse,
					Tone:                 model.ToneProfessional,
					Content:              "Our pricing starts at $40 per seat.",
					RelevanceScore:       score,
					PersonalizationScore: score,
				}
			}
			return out
		}

		BeforeEach(func() {
			classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
				return classified(), nil
			}
		})

		It("persists suggestions and recommends the best one", func() {
			generator.generateFn = func(_ context.Context, _ brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				return generated(0.6, 0.9, 0.7), nil
			}

			var batch []*model.ReplySuggestion
			suggestions.createBatchFn = func(_ context.Context, s []*model.ReplySuggestion) error {
				batch = s
				return nil
			}

			params := validParams()
			params.IncludeSuggestions = true

			result, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuggestionsFailed).To(BeFalse())
			Expect(result.Suggestions).To(HaveLen(3))
			Expect(batch).To(HaveLen(3))
			for _, s := range result.Suggestions {
				Expect(s.ID).NotTo(BeZero())
				Expect(s.AnalysisID).To(Equal(result.Analysis.ID))
				Expect(s.WorkspaceID).To(Equal(int64(7)))
			}
			Expect(result.RecommendedSuggestionID).To(HaveValue(Equal(result.Suggestions[1].ID)))
		})

		It("clamps the requested count and forwards it to the generator", func() {
			var gotMax int
			generator.generateFn = func(_ context.Context, p brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				gotMax = p.MaxSuggestions
				return generated(0.5), nil
			}

			params := validParams()
			params.IncludeSuggestions = true
			params.SuggestionCount = 12

			_, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotMax).To(Equal(5))
		})

		It("defaults the count when the caller does not ask for one", func() {
			var gotMax int
			generator.generateFn = func(_ context.Context, p brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				gotMax = p.MaxSuggestions
				return generated(0.5), nil
			}

			params := validParams()
			params.IncludeSuggestions = true

			_, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotMax).To(Equal(3))
		})

		It("degrades instead of failing when generation errors", func() {
			generator.generateFn = func(_ context.Context, _ brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				return nil, brain.NewRetryableError(brain.ErrGenerationFailed)
			}

			params := validParams()
			params.IncludeSuggestions = true
			params.ThreadID = logger.Ptr("thread-1")

			result, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuggestionsFailed).To(BeTrue())
			Expect(result.Suggestions).To(BeEmpty())
			Expect(result.Analysis).NotTo(BeNil())
			Expect(result.Context).NotTo(BeNil())
		})

		It("degrades when the batch cannot be persisted", func() {
			generator.generateFn = func(_ context.Context, _ brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				return generated(0.5), nil
			}
			suggestions.createBatchFn = func(_ context.Context, _ []*model.ReplySuggestion) error {
				return errors.New("insert failed")
			}

			params := validParams()
			params.IncludeSuggestions = true

			result, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuggestionsFailed).To(BeTrue())
			Expect(result.Suggestions).To(BeEmpty())
		})

		It("skips generation when the request is already cancelled", func() {
			called := false
			generator.generateFn = func(_ context.Context, _ brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				called = true
				return generated(0.5), nil
			}

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			params := validParams()
			params.IncludeSuggestions = true

			// Classification already ran against the mock, so the facade is
			// past ANALYZED when it checks for cancellation.
			result, err := svc.AnalyzeMessage(cancelled, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(called).To(BeFalse())
			Expect(result.SuggestionsFailed).To(BeTrue())
		})

		It("generates without templates when the lookup fails", func() {
			templates.listByIntentFn = func(_ context.Context, _ int64, _ model.Intent, _ int32) ([]model.MessageTemplate, error) {
				return nil, errors.New("db down")
			}

			var gotTemplates []model.MessageTemplate
			generator.generateFn = func(_ context.Context, p brain.GenerateParams) ([]*model.ReplySuggestion, error) {
				gotTemplates = p.Templates
				return generated(0.5), nil
			}

			params := validParams()
			params.IncludeSuggestions = true

			result, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(gotTemplates).To(BeEmpty())
			Expect(result.SuggestionsFailed).To(BeFalse())
		})
	})

	DescribeTable("rejects invalid parameters",
		func(mutate func(*service.SmartReplyParams)) {
			params := validParams()
			mutate(&params)

			_, err := svc.AnalyzeMessage(ctx, params)
			Expect(err).To(HaveOccurred())
		},
		Entry("missing workspace", func(p *service.SmartReplyParams) { p.WorkspaceID = 0 }),
		Entry("missing message id", func(p *service.SmartReplyParams) { p.MessageID = "" }),
		Entry("bad channel", func(p *service.SmartReplyParams) { p.Channel = "fax" }),
		Entry("blank text", func(p *service.SmartReplyParams) { p.Text = "   " }),
		Entry("empty thread id", func(p *service.SmartReplyParams) { p.ThreadID = logger.Ptr("") }),
	)

	It("never calls the classifier for invalid input", func() {
		called := false
		classifier.analyzeFn = func(_ context.Context, _ brain.ClassifyParams) (*brain.ClassificationResult, error) {
			called = true
			return classified(), nil
		}

		params := validParams()
		params.Text = ""

		_, _ = svc.AnalyzeMessage(ctx, params)
		Expect(called).To(BeFalse())
	})
})
