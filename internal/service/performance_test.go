package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"replyloop.app/insight/common/id"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

var _ = Describe("PerformanceService", func() {
	var (
		suggestions  *mockSuggestionStore
		performances *mockPerformanceStore
		svc          service.PerformanceService
		ctx          context.Context
	)

	BeforeEach(func() {
		Expect(id.Init(1)).To(Succeed())
		suggestions = &mockSuggestionStore{}
		performances = &mockPerformanceStore{}
		svc = service.NewPerformanceService(suggestions, performances)
		ctx = context.Background()
	})

	Describe("RecordSelection", func() {
		BeforeEach(func() {
			suggestions.getByIDFn = func(_ context.Context, id int64) (*model.ReplySuggestion, error) {
				return &model.ReplySuggestion{ID: id, AnalysisID: 42, WorkspaceID: 7}, nil
			}
		})

		It("marks the suggestion selected", func() {
			var gotEdited bool
			var gotContent *string
			suggestions.markSelectedFn = func(_ context.Context, id int64, wasEdited bool, finalContent *string, _ time.Time) error {
				Expect(id).To(Equal(int64(100)))
				gotEdited = wasEdited
				gotContent = finalContent
				return nil
			}

			err := svc.RecordSelection(ctx, 7, 100, true, logger.Ptr("tweaked reply"))
			Expect(err).NotTo(HaveOccurred())
			Expect(gotEdited).To(BeTrue())
			Expect(gotContent).To(HaveValue(Equal("tweaked reply")))
		})

		It("drops final content for an unedited selection", func() {
			suggestions.markSelectedFn = func(_ context.Context, _ int64, _ bool, finalContent *string, _ time.Time) error {
				Expect(finalContent).To(BeNil())
				return nil
			}

			Expect(svc.RecordSelection(ctx, 7, 100, false, logger.Ptr("ignored"))).To(Succeed())
		})

		It("requires final content when edited", func() {
			Expect(svc.RecordSelection(ctx, 7, 100, true, nil)).NotTo(Succeed())
		})

		It("rejects a second selection within the same analysis", func() {
			suggestions.hasSelectionFn = func(_ context.Context, analysisID, excludeID int64) (bool, error) {
				Expect(analysisID).To(Equal(int64(42)))
				Expect(excludeID).To(Equal(int64(100)))
				return true, nil
			}

			err := svc.RecordSelection(ctx, 7, 100, false, nil)
			Expect(errors.Is(err, service.ErrSelectionConflict)).To(BeTrue())
		})

		It("reports a conflict when a concurrent selection wins the write race", func() {
			// The pre-check saw no sibling, but the partial unique index
			// rejected the update.
			suggestions.hasSelectionFn = func(_ context.Context, _, _ int64) (bool, error) {
				return false, nil
			}
			suggestions.markSelectedFn = func(_ context.Context, _ int64, _ bool, _ *string, _ time.Time) error {
				return store.ErrSelectionConflict
			}

			err := svc.RecordSelection(ctx, 7, 100, false, nil)
			Expect(errors.Is(err, service.ErrSelectionConflict)).To(BeTrue())
		})

		It("hides suggestions from other workspaces", func() {
			err := svc.RecordSelection(ctx, 999, 100, false, nil)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})

		It("surfaces an unknown suggestion", func() {
			suggestions.getByIDFn = func(_ context.Context, _ int64) (*model.ReplySuggestion, error) {
				return nil, store.ErrNotFound
			}

			err := svc.RecordSelection(ctx, 7, 100, false, nil)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("RecordSend", func() {
		validParams := func() service.SendParams {
			return service.SendParams{
				WorkspaceID:   7,
				SentMessageID: "msg-900",
				Channel:       model.ChannelEmail,
				Content:       "Thanks for the details, sending pricing over.",
			}
		}

		It("creates a pending record and returns its id", func() {
			var created *model.ReplyPerformance
			performances.createFn = func(_ context.Context, p *model.ReplyPerformance) error {
				created = p
				return nil
			}

			performanceID, err := svc.RecordSend(ctx, validParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(performanceID).NotTo(BeZero())
			Expect(created.ID).To(Equal(performanceID))
			Expect(created.SuggestionID).To(BeNil())
			Expect(created.OutcomeRecorded).To(BeFalse())
		})

		It("verifies a linked suggestion belongs to the workspace", func() {
			suggestions.getByIDFn = func(_ context.Context, id int64) (*model.ReplySuggestion, error) {
				return &model.ReplySuggestion{ID: id, WorkspaceID: 999}, nil
			}

			params := validParams()
			params.SuggestionID = logger.Ptr(int64(100))

			_, err := svc.RecordSend(ctx, params)
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})

		It("rejects an invalid channel", func() {
			params := validParams()
			params.Channel = model.Channel("carrier_pigeon")

			_, err := svc.RecordSend(ctx, params)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a missing sent message id", func() {
			params := validParams()
			params.SentMessageID = ""

			_, err := svc.RecordSend(ctx, params)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RecordOutcome", func() {
		outcome := func() service.OutcomeParams {
			return service.OutcomeParams{
				Outcome:     model.OutcomeMeetingBooked,
				GotResponse: true,
			}
		}

		It("applies the outcome once", func() {
			var got store.OutcomeParams
			performances.markOutcomeFn = func(_ context.Context, id int64, params store.OutcomeParams) error {
				Expect(id).To(Equal(int64(500)))
				got = params
				return nil
			}

			Expect(svc.RecordOutcome(ctx, 500, outcome())).To(Succeed())
			Expect(got.Outcome).To(Equal(model.OutcomeMeetingBooked))
			Expect(got.GotResponse).To(BeTrue())
		})

		It("treats a duplicate outcome as a no-op", func() {
			performances.markOutcomeFn = func(_ context.Context, _ int64, _ store.OutcomeParams) error {
				return store.ErrAlreadyRecorded
			}

			Expect(svc.RecordOutcome(ctx, 500, outcome())).To(Succeed())
		})

		It("rejects an unknown outcome value", func() {
			params := outcome()
			params.Outcome = model.Outcome("shrug")

			Expect(svc.RecordOutcome(ctx, 500, params)).NotTo(Succeed())
		})

		It("surfaces a missing performance record", func() {
			performances.markOutcomeFn = func(_ context.Context, _ int64, _ store.OutcomeParams) error {
				return store.ErrNotFound
			}

			err := svc.RecordOutcome(ctx, 500, outcome())
			Expect(errors.Is(err, store.ErrNotFound)).To(BeTrue())
		})
	})
})
