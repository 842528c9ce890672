package handler_test

import (
	"context"
	"errors"

	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/queue"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

type mockSmartReplyService struct {
	analyzeMessageFn func(ctx context.Context, params service.SmartReplyParams) (*service.SmartReplyResult, error)
}

func (m *mockSmartReplyService) AnalyzeMessage(ctx context.Context, params service.SmartReplyParams) (*service.SmartReplyResult, error) {
	if m.analyzeMessageFn != nil {
		return m.analyzeMessageFn(ctx, params)
	}
	return nil, errors.New("mock not configured")
}

type mockConversationService struct {
	getContextFn    func(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error)
	applyAnalysisFn func(ctx context.Context, threadID string, analysis *model.MessageAnalysis) (*model.ConversationContext, error)
	updateStageFn   func(ctx context.Context, workspaceID int64, threadID string, stage model.Stage, reopen bool) (*model.ConversationContext, error)
}

func (m *mockConversationService) GetContext(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error) {
	if m.getContextFn != nil {
		return m.getContextFn(ctx, workspaceID, threadID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationService) ApplyAnalysis(ctx context.Context, threadID string, analysis *model.MessageAnalysis) (*model.ConversationContext, error) {
	if m.applyAnalysisFn != nil {
		return m.applyAnalysisFn(ctx, threadID, analysis)
	}
	return nil, errors.New("mock not configured")
}

func (m *mockConversationService) UpdateStage(ctx context.Context, workspaceID int64, threadID string, stage model.Stage, reopen bool) (*model.ConversationContext, error) {
	if m.updateStageFn != nil {
		return m.updateStageFn(ctx, workspaceID, threadID, stage, reopen)
	}
	return nil, errors.New("mock not configured")
}

type mockPerformanceService struct {
	recordSelectionFn func(ctx context.Context, workspaceID, suggestionID int64, wasEdited bool, finalContent *string) error
	recordSendFn      func(ctx context.Context, params service.SendParams) (int64, error)
	recordOutcomeFn   func(ctx context.Context, performanceID int64, outcome service.OutcomeParams) error
}

func (m *mockPerformanceService) RecordSelection(ctx context.Context, workspaceID, suggestionID int64, wasEdited bool, finalContent *string) error {
	if m.recordSelectionFn != nil {
		return m.recordSelectionFn(ctx, workspaceID, suggestionID, wasEdited, finalContent)
	}
	return nil
}

func (m *mockPerformanceService) RecordSend(ctx context.Context, params service.SendParams) (int64, error) {
	if m.recordSendFn != nil {
		return m.recordSendFn(ctx, params)
	}
	return 0, errors.New("mock not configured")
}

func (m *mockPerformanceService) RecordOutcome(ctx context.Context, performanceID int64, outcome service.OutcomeParams) error {
	if m.recordOutcomeFn != nil {
		return m.recordOutcomeFn(ctx, performanceID, outcome)
	}
	return nil
}

type mockProducer struct {
	enqueueFn func(ctx context.Context, event queue.OutcomeEvent) error
}

func (m *mockProducer) Enqueue(ctx context.Context, event queue.OutcomeEvent) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, event)
	}
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
