package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"replyloop.app/insight/common/id"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

func analysisWith(sentiment model.Sentiment, intent model.Intent) *model.MessageAnalysis {
	return &model.MessageAnalysis{
		ID:          42,
		WorkspaceID: 7,
		Sentiment:   sentiment,
		Intent:      intent,
	}
}

var _ = Describe("ConversationService", func() {
	var (
		contexts *mockContextStore
		svc      service.ConversationService
		ctx      context.Context
	)

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		contexts = &mockContextStore{}
		svc = service.NewConversationService(contexts)
		ctx = context.Background()
	})

	Describe("ApplyAnalysis", func() {
		It("creates a context on the first message of a thread", func() {
			var created *model.ConversationContext
			contexts.createFn = func(_ context.Context, c *model.ConversationContext) error {
				created = c
				return nil
			}

			result, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(model.SentimentPositive, model.IntentQuestion))
			Expect(err).NotTo(HaveOccurred())
			Expect(created).NotTo(BeNil())
			Expect(result.MessageCount).To(Equal(1))
			Expect(result.WorkspaceID).To(Equal(int64(7)))
			Expect(result.ThreadID).To(Equal("thread-1"))
			Expect(result.OverallSentiment).To(Equal(model.SentimentPositive))
			Expect(result.SentimentTrend).To(Equal(model.TrendStable))
			Expect(result.ID).NotTo(BeZero())
		})

		It("increments the count and passes the guard value on update", func() {
			existing := &model.ConversationContext{
				ID:               1,
				WorkspaceID:      7,
				ThreadID:         "thread-1",
				MessageCount:     3,
				OverallSentiment: model.SentimentNeutral,
			}
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return existing, nil
			}

			var gotExpected int
			contexts.updateFn = func(_ context.Context, _ *model.ConversationContext, expectedCount int) error {
				gotExpected = expectedCount
				return nil
			}

			result, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(model.SentimentNeutral, model.IntentQuestion))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.MessageCount).To(Equal(4))
			Expect(gotExpected).To(Equal(3))
		})

		DescribeTable("derives the trend from the previous and new sentiment",
			func(previous, current model.Sentiment, want model.SentimentTrend) {
				contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
					return &model.ConversationContext{MessageCount: 1, OverallSentiment: previous}, nil
				}

				result, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(current, model.IntentOther))
				Expect(err).NotTo(HaveOccurred())
				Expect(result.SentimentTrend).To(Equal(want))
				Expect(result.OverallSentiment).To(Equal(current))
			},
			Entry("negative to positive improves", model.SentimentNegative, model.SentimentPositive, model.TrendImproving),
			Entry("neutral to positive improves", model.SentimentNeutral, model.SentimentPositive, model.TrendImproving),
			Entry("positive to negative declines", model.SentimentPositive, model.SentimentNegative, model.TrendDeclining),
			Entry("negative to negative is stable", model.SentimentNegative, model.SentimentNegative, model.TrendStable),
			Entry("neutral and mixed rank equal", model.SentimentNeutral, model.SentimentMixed, model.TrendStable),
		)

		It("grows signal sets without duplicates or reordering", func() {
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return &model.ConversationContext{
					MessageCount: 2,
					PainPoints:   []string{"manual reporting", "slow onboarding"},
				}, nil
			}

			analysis := analysisWith(model.SentimentNeutral, model.IntentOther)
			analysis.Signals.PainPoints = []string{"slow onboarding", "tool sprawl"}
			analysis.Signals.Competitors = []string{"Acme"}

			result, err := svc.ApplyAnalysis(ctx, "thread-1", analysis)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PainPoints).To(Equal([]string{"manual reporting", "slow onboarding", "tool sprawl"}))
			Expect(result.Competitors).To(Equal([]string{"Acme"}))
		})

		DescribeTable("advances the stage from intent hints",
			func(intent model.Intent, current model.Stage, want model.Stage) {
				contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
					return &model.ConversationContext{MessageCount: 1, Stage: current}, nil
				}

				result, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(model.SentimentNeutral, intent))
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Stage).To(Equal(want))
			},
			Entry("interest moves an unset stage to qualification", model.IntentInterest, model.Stage(""), model.StageQualification),
			Entry("pricing inquiry advances discovery to proposal", model.IntentPricingInquiry, model.StageDiscovery, model.StageProposal),
			Entry("meeting request never demotes negotiation", model.IntentMeetingRequest, model.StageNegotiation, model.StageNegotiation),
			Entry("objection advances proposal to negotiation", model.IntentObjection, model.StageProposal, model.StageNegotiation),
			Entry("unsubscribe closes the conversation", model.IntentUnsubscribe, model.StageQualification, model.StageClosedLost),
			Entry("question leaves the stage alone", model.IntentQuestion, model.StageDiscovery, model.StageDiscovery),
		)

		It("applies the stage hint on the very first message too", func() {
			result, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(model.SentimentNeutral, model.IntentPricingInquiry))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(model.StageProposal))
		})

		It("propagates a lost update race", func() {
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return &model.ConversationContext{MessageCount: 1}, nil
			}
			contexts.updateFn = func(_ context.Context, _ *model.ConversationContext, _ int) error {
				return store.ErrConcurrentModification
			}

			_, err := svc.ApplyAnalysis(ctx, "thread-1", analysisWith(model.SentimentNeutral, model.IntentOther))
			Expect(errors.Is(err, store.ErrConcurrentModification)).To(BeTrue())
		})

		It("rejects a nil analysis and an empty thread id", func() {
			_, err := svc.ApplyAnalysis(ctx, "thread-1", nil)
			Expect(err).To(HaveOccurred())

			_, err = svc.ApplyAnalysis(ctx, "", analysisWith(model.SentimentNeutral, model.IntentOther))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UpdateStage", func() {
		BeforeEach(func() {
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return &model.ConversationContext{MessageCount: 5, Stage: model.StageProposal}, nil
			}
		})

		It("advances the stage", func() {
			result, err := svc.UpdateStage(ctx, 7, "thread-1", model.StageNegotiation, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(model.StageNegotiation))
		})

		It("rejects a regression without reopen", func() {
			_, err := svc.UpdateStage(ctx, 7, "thread-1", model.StageDiscovery, false)
			Expect(errors.Is(err, service.ErrStageRegression)).To(BeTrue())
		})

		It("allows a regression with reopen", func() {
			result, err := svc.UpdateStage(ctx, 7, "thread-1", model.StageDiscovery, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(model.StageDiscovery))
		})

		It("reopens a closed conversation", func() {
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return &model.ConversationContext{MessageCount: 5, Stage: model.StageClosedLost}, nil
			}

			result, err := svc.UpdateStage(ctx, 7, "thread-1", model.StageDiscovery, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Stage).To(Equal(model.StageDiscovery))
		})

		It("rejects an unknown stage", func() {
			_, err := svc.UpdateStage(ctx, 7, "thread-1", model.Stage("galactic_domination"), false)
			Expect(err).To(HaveOccurred())
		})

		It("surfaces a missing thread", func() {
			contexts.getByThreadFn = func(_ context.Context, _ int64, _ string) (*model.ConversationContext, error) {
				return nil, store.ErrNotFound
			}

			_, err := svc.UpdateStage(ctx, 7, "missing", model.StageDiscovery, false)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})
})
