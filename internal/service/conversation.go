package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"replyloop.app/insight/common/id"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/store"
)

// ErrStageRegression is returned when a stage update would move the
// conversation backward without an explicit reopen.
var ErrStageRegression = errors.New("stage regression requires reopen")

// ConversationService tracks the one mutable record per thread. All writes
// for the same thread are serialized through a keyed lock; different
// threads proceed in parallel.
type ConversationService interface {
	GetContext(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error)
	ApplyAnalysis(ctx context.Context, threadID string, analysis *model.MessageAnalysis) (*model.ConversationContext, error)
	UpdateStage(ctx context.Context, workspaceID int64, threadID string, stage model.Stage, reopen bool) (*model.ConversationContext, error)
}

// stageHints maps intents to the minimum stage they imply. The hint only
// ever advances the conversation; moving backward stays reserved for an
// explicit reopen.
var stageHints = map[model.Intent]model.Stage{
	model.IntentInterest:       model.StageQualification,
	model.IntentMeetingRequest: model.StageDiscovery,
	model.IntentPricingInquiry: model.StageProposal,
	model.IntentObjection:      model.StageNegotiation,
	model.IntentUnsubscribe:    model.StageClosedLost,
}

type conversationService struct {
	contexts store.ContextStore
	locks    *threadLocks
}

func NewConversationService(contexts store.ContextStore) ConversationService {
	return &conversationService{
		contexts: contexts,
		locks:    newThreadLocks(),
	}
}

func (s *conversationService) GetContext(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is required", ErrValidation)
	}
	return s.contexts.GetByThread(ctx, workspaceID, threadID)
}

func (s *conversationService) ApplyAnalysis(ctx context.Context, threadID string, analysis *model.MessageAnalysis) (*model.ConversationContext, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: thread id is required", ErrValidation)
	}
	if analysis == nil {
		return nil, fmt.Errorf("%w: analysis is required", ErrValidation)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(analysis.WorkspaceID),
		ThreadID:    logger.Ptr(threadID),
		Component:   "insight.service.conversation",
	})

	unlock := s.locks.Lock(lockKey(analysis.WorkspaceID, threadID))
	defer unlock()

	existing, err := s.contexts.GetByThread(ctx, analysis.WorkspaceID, threadID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading conversation context: %w", err)
	}

	if existing == nil {
		created := s.newContext(threadID, analysis)
		if err := s.contexts.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("creating conversation context: %w", err)
		}
		slog.InfoContext(ctx, "conversation context created",
			"stage", created.Stage,
			"sentiment", created.OverallSentiment)
		return created, nil
	}

	expectedCount := existing.MessageCount

	existing.MessageCount++
	existing.LastMessageAt = time.Now().UTC()
	// The trend reflects only the most recent transition, not a moving
	// average over the whole thread.
	existing.SentimentTrend = trendBetween(existing.OverallSentiment, analysis.Sentiment)
	existing.OverallSentiment = analysis.Sentiment
	mergeSignals(existing, analysis)
	applyStageHint(existing, analysis.Intent)

	if err := s.contexts.Update(ctx, existing, expectedCount); err != nil {
		return nil, fmt.Errorf("updating conversation context: %w", err)
	}

	slog.InfoContext(ctx, "conversation context updated",
		"message_count", existing.MessageCount,
		"sentiment", existing.OverallSentiment,
		"trend", existing.SentimentTrend,
		"stage", existing.Stage)

	return existing, nil
}

func (s *conversationService) UpdateStage(ctx context.Context, workspaceID int64, threadID string, stage model.Stage, reopen bool) (*model.ConversationContext, error) {
	if !model.ValidStage(stage) {
		return nil, fmt.Errorf("%w: invalid stage %q", ErrValidation, stage)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(workspaceID),
		ThreadID:    logger.Ptr(threadID),
		Component:   "insight.service.conversation",
	})

	unlock := s.locks.Lock(lockKey(workspaceID, threadID))
	defer unlock()

	existing, err := s.contexts.GetByThread(ctx, workspaceID, threadID)
	if err != nil {
		return nil, err
	}

	if model.StageRank(stage) < model.StageRank(existing.Stage) && !reopen {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStageRegression, existing.Stage, stage)
	}

	expectedCount := existing.MessageCount
	existing.Stage = stage

	if err := s.contexts.Update(ctx, existing, expectedCount); err != nil {
		return nil, fmt.Errorf("updating stage: %w", err)
	}

	slog.InfoContext(ctx, "conversation stage updated", "stage", stage, "reopen", reopen)

	return existing, nil
}

func (s *conversationService) newContext(threadID string, analysis *model.MessageAnalysis) *model.ConversationContext {
	created := &model.ConversationContext{
		ID:               id.New(),
		WorkspaceID:      analysis.WorkspaceID,
		ThreadID:         threadID,
		MessageCount:     1,
		LastMessageAt:    time.Now().UTC(),
		OverallSentiment: analysis.Sentiment,
		SentimentTrend:   model.TrendStable,
	}
	mergeSignals(created, analysis)
	applyStageHint(created, analysis.Intent)
	return created
}

// trendBetween maps both sentiments onto the negative<neutral=mixed<positive
// scale and compares the single step.
func trendBetween(previous, current model.Sentiment) model.SentimentTrend {
	oldRank := model.SentimentRank(previous)
	newRank := model.SentimentRank(current)
	switch {
	case newRank > oldRank:
		return model.TrendImproving
	case newRank < oldRank:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func mergeSignals(c *model.ConversationContext, analysis *model.MessageAnalysis) {
	c.PainPoints = model.MergeUnique(c.PainPoints, analysis.Signals.PainPoints)
	c.Objectives = model.MergeUnique(c.Objectives, analysis.Signals.Objectives)
	c.DecisionMakers = model.MergeUnique(c.DecisionMakers, analysis.Signals.DecisionMakers)
	c.Competitors = model.MergeUnique(c.Competitors, analysis.Signals.Competitors)
}

func applyStageHint(c *model.ConversationContext, intent model.Intent) {
	hint, ok := stageHints[intent]
	if !ok {
		return
	}
	if model.StageRank(hint) > model.StageRank(c.Stage) {
		c.Stage = hint
	}
}

func lockKey(workspaceID int64, threadID string) string {
	return fmt.Sprintf("%d:%s", workspaceID, threadID)
}
