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

// ErrSelectionConflict is returned when a selection would give an analysis a
// second selected suggestion.
var ErrSelectionConflict = errors.New("another suggestion is already selected")

// SendParams describes one outbound message to start tracking. SuggestionID
// is nil for manual replies typed from scratch.
type SendParams struct {
	SuggestionID  *int64
	WorkspaceID   int64
	SentMessageID string
	Channel       model.Channel
	Content       string
}

// OutcomeParams carries the terminal result reported for a sent message.
type OutcomeParams struct {
	Outcome             model.Outcome
	ResponseSentiment   *model.Sentiment
	ResponseTimeSeconds *int64
	DealValue           *float64
	GotResponse         bool
	LedToOpportunity    bool
	LedToDeal           bool
}

// PerformanceService closes the feedback loop: which suggestion was picked,
// what was actually sent, and what came of it.
type PerformanceService interface {
	RecordSelection(ctx context.Context, workspaceID, suggestionID int64, wasEdited bool, finalContent *string) error
	RecordSend(ctx context.Context, params SendParams) (int64, error)
	RecordOutcome(ctx context.Context, performanceID int64, outcome OutcomeParams) error
}

type performanceService struct {
	suggestions  store.SuggestionStore
	performances store.PerformanceStore
}

func NewPerformanceService(suggestions store.SuggestionStore, performances store.PerformanceStore) PerformanceService {
	return &performanceService{
		suggestions:  suggestions,
		performances: performances,
	}
}

// RecordSelection marks the suggestion as the one the user picked. Repeating
// the call for the same suggestion overwrites the edit state and keeps the
// original selected_at, so callers may safely resend the callback.
func (s *performanceService) RecordSelection(ctx context.Context, workspaceID, suggestionID int64, wasEdited bool, finalContent *string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID:  logger.Ptr(workspaceID),
		SuggestionID: logger.Ptr(suggestionID),
		Component:    "insight.service.performance",
	})

	suggestion, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		return err
	}
	if suggestion.WorkspaceID != workspaceID {
		return store.ErrNotFound
	}

	// Fast path only; the partial unique index on selected rows is what
	// actually holds the invariant against concurrent selections.
	taken, err := s.suggestions.HasSelection(ctx, suggestion.AnalysisID, suggestionID)
	if err != nil {
		return fmt.Errorf("checking existing selection: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: analysis %d", ErrSelectionConflict, suggestion.AnalysisID)
	}

	if wasEdited && finalContent == nil {
		return fmt.Errorf("%w: final content is required for an edited selection", ErrValidation)
	}
	if !wasEdited {
		finalContent = nil
	}

	if err := s.suggestions.MarkSelected(ctx, suggestionID, wasEdited, finalContent, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrSelectionConflict) {
			// A concurrent selection won the race between the check above
			// and the write.
			return fmt.Errorf("%w: analysis %d", ErrSelectionConflict, suggestion.AnalysisID)
		}
		return fmt.Errorf("marking suggestion selected: %w", err)
	}

	slog.InfoContext(ctx, "suggestion selected", "was_edited", wasEdited)
	return nil
}

// RecordSend opens a pending performance record for a sent message and
// returns its id. Outcome fields stay empty until RecordOutcome.
func (s *performanceService) RecordSend(ctx context.Context, params SendParams) (int64, error) {
	if params.SentMessageID == "" {
		return 0, fmt.Errorf("%w: sent message id is required", ErrValidation)
	}
	if !model.ValidChannel(params.Channel) {
		return 0, fmt.Errorf("%w: invalid channel %q", ErrValidation, params.Channel)
	}
	if params.Content == "" {
		return 0, fmt.Errorf("%w: content is required", ErrValidation)
	}

	if params.SuggestionID != nil {
		suggestion, err := s.suggestions.GetByID(ctx, *params.SuggestionID)
		if err != nil {
			return 0, err
		}
		if suggestion.WorkspaceID != params.WorkspaceID {
			return 0, store.ErrNotFound
		}
	}

	performance := &model.ReplyPerformance{
		ID:            id.New(),
		WorkspaceID:   params.WorkspaceID,
		SuggestionID:  params.SuggestionID,
		SentMessageID: params.SentMessageID,
		Channel:       params.Channel,
		Content:       params.Content,
	}

	if err := s.performances.Create(ctx, performance); err != nil {
		return 0, fmt.Errorf("creating performance record: %w", err)
	}

	slog.InfoContext(ctx, "send recorded",
		"performance_id", performance.ID,
		"channel", params.Channel,
		"from_suggestion", params.SuggestionID != nil)

	return performance.ID, nil
}

// RecordOutcome applies the terminal outcome exactly once. A duplicate
// outcome, typically a redelivered event, is logged and dropped so the first
// report stays authoritative.
func (s *performanceService) RecordOutcome(ctx context.Context, performanceID int64, outcome OutcomeParams) error {
	if !model.ValidOutcome(outcome.Outcome) {
		return fmt.Errorf("%w: invalid outcome %q", ErrValidation, outcome.Outcome)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		PerformanceID: logger.Ptr(performanceID),
		Component:     "insight.service.performance",
	})

	err := s.performances.MarkOutcome(ctx, performanceID, store.OutcomeParams{
		Outcome:             outcome.Outcome,
		ResponseSentiment:   outcome.ResponseSentiment,
		ResponseTimeSeconds: outcome.ResponseTimeSeconds,
		DealValue:           outcome.DealValue,
		GotResponse:         outcome.GotResponse,
		LedToOpportunity:    outcome.LedToOpportunity,
		LedToDeal:           outcome.LedToDeal,
	})
	if errors.Is(err, store.ErrAlreadyRecorded) {
		slog.WarnContext(ctx, "outcome already recorded, ignoring duplicate", "outcome", outcome.Outcome)
		return nil
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "outcome recorded",
		"outcome", outcome.Outcome,
		"got_response", outcome.GotResponse)
	return nil
}
