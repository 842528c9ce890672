package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"replyloop.app/insight/common/id"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/core/config"
	"replyloop.app/insight/internal/brain"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/store"
)

// templateLimit caps how many workspace templates feed a generation prompt.
const templateLimit = 3

// SmartReplyParams is one inbound message handed to the engine.
type SmartReplyParams struct {
	SenderName         *string
	SenderEmail        *string
	ThreadID           *string
	MessageID          string
	Text               string
	Channel            model.Channel
	WorkspaceID        int64
	SuggestionCount    int
	IncludeSuggestions bool
}

// SmartReplyResult is everything the engine produced for one message. When
// suggestion generation fails after the analysis is persisted, Suggestions
// is empty and SuggestionsFailed is set; the analysis and context are still
// returned.
type SmartReplyResult struct {
	Analysis                *model.MessageAnalysis
	Context                 *model.ConversationContext
	RecommendedSuggestionID *int64
	Suggestions             []*model.ReplySuggestion
	SuggestionsFailed       bool
}

// SmartReplyService runs the full pipeline for an inbound message: classify,
// fold into the thread context, generate and rank reply suggestions.
type SmartReplyService interface {
	AnalyzeMessage(ctx context.Context, params SmartReplyParams) (*SmartReplyResult, error)
}

type smartReplyService struct {
	classifier    brain.Classifier
	generator     brain.Generator
	conversations ConversationService
	analyses      store.AnalysisStore
	templates     store.TemplateStore
	txRunner      TxRunner
	cfg           config.EngineConfig
}

func NewSmartReplyService(
	classifier brain.Classifier,
	generator brain.Generator,
	conversations ConversationService,
	analyses store.AnalysisStore,
	templates store.TemplateStore,
	txRunner TxRunner,
	cfg config.EngineConfig,
) SmartReplyService {
	return &smartReplyService{
		classifier:    classifier,
		generator:     generator,
		conversations: conversations,
		analyses:      analyses,
		templates:     templates,
		txRunner:      txRunner,
		cfg:           cfg,
	}
}

// AnalyzeMessage walks the message through the pipeline stages in order.
// A classification or persistence failure before the analysis exists fails
// the whole call; anything after that degrades to a result without
// suggestions so the persisted analysis and context are never discarded.
func (s *smartReplyService) AnalyzeMessage(ctx context.Context, params SmartReplyParams) (*SmartReplyResult, error) {
	if err := validateSmartReplyParams(params); err != nil {
		return nil, err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		WorkspaceID: logger.Ptr(params.WorkspaceID),
		MessageID:   logger.Ptr(params.MessageID),
		ThreadID:    params.ThreadID,
		Channel:     logger.Ptr(string(params.Channel)),
		Component:   "insight.service.smartreply",
	})

	start := time.Now()

	// Prior thread context, when there is one, sharpens the extraction and
	// records how deep into the conversation this message arrived.
	priorContext := s.loadPriorContext(ctx, params)

	classification, err := s.classifier.Analyze(ctx, brain.ClassifyParams{
		Text:         params.Text,
		SenderName:   params.SenderName,
		PriorContext: priorContextHint(priorContext),
	})
	if err != nil {
		return nil, fmt.Errorf("classifying message: %w", err)
	}

	analysis := s.newAnalysis(params, classification, priorContext)
	if err := s.analyses.Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{AnalysisID: logger.Ptr(analysis.ID)})

	result := &SmartReplyResult{Analysis: analysis}

	if params.ThreadID != nil {
		updated, err := s.conversations.ApplyAnalysis(ctx, *params.ThreadID, analysis)
		if err != nil {
			// The analysis is already persisted; losing the context update
			// degrades the result instead of discarding the work.
			slog.ErrorContext(ctx, "context update failed, continuing without context", "error", err)
		} else {
			result.Context = updated
		}
	}

	if params.IncludeSuggestions {
		s.attachSuggestions(ctx, params, result)
	}

	slog.InfoContext(ctx, "message analyzed",
		"sentiment", analysis.Sentiment,
		"intent", analysis.Intent,
		"suggestions", len(result.Suggestions),
		"suggestions_failed", result.SuggestionsFailed,
		"duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// attachSuggestions runs the generation half of the pipeline. Every failure
// path sets SuggestionsFailed and leaves the rest of the result intact.
func (s *smartReplyService) attachSuggestions(ctx context.Context, params SmartReplyParams, result *SmartReplyResult) {
	if ctx.Err() != nil {
		slog.WarnContext(ctx, "request cancelled before generation, skipping suggestions")
		result.SuggestionsFailed = true
		return
	}

	templates, err := s.templates.ListByIntent(ctx, params.WorkspaceID, result.Analysis.Intent, templateLimit)
	if err != nil {
		slog.WarnContext(ctx, "template lookup failed, generating without templates", "error", err)
		templates = nil
	}

	senderName := ""
	if params.SenderName != nil {
		senderName = *params.SenderName
	}

	suggestions, err := s.generator.Generate(ctx, brain.GenerateParams{
		Analysis:       result.Analysis,
		Context:        result.Context,
		Templates:      templates,
		SenderName:     senderName,
		MaxSuggestions: s.suggestionCount(params),
	})
	if err != nil {
		slog.ErrorContext(ctx, "suggestion generation failed, degrading", "error", err)
		result.SuggestionsFailed = true
		return
	}

	for _, suggestion := range suggestions {
		suggestion.ID = id.New()
		suggestion.AnalysisID = result.Analysis.ID
		suggestion.WorkspaceID = params.WorkspaceID
	}

	err = s.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		return stores.Suggestions().CreateBatch(ctx, suggestions)
	})
	if err != nil {
		slog.ErrorContext(ctx, "persisting suggestions failed, degrading", "error", err)
		result.SuggestionsFailed = true
		return
	}

	result.Suggestions = suggestions
	if best := brain.Rank(suggestions); best >= 0 {
		result.RecommendedSuggestionID = logger.Ptr(suggestions[best].ID)
	}
}

func (s *smartReplyService) loadPriorContext(ctx context.Context, params SmartReplyParams) *model.ConversationContext {
	if params.ThreadID == nil {
		return nil
	}
	existing, err := s.conversations.GetContext(ctx, params.WorkspaceID, *params.ThreadID)
	if err != nil {
		// A missing context just means a new thread; other errors are
		// not worth failing the call over either.
		return nil
	}
	return existing
}

func (s *smartReplyService) newAnalysis(params SmartReplyParams, c *brain.ClassificationResult, prior *model.ConversationContext) *model.MessageAnalysis {
	priorCount := 0
	if prior != nil {
		priorCount = prior.MessageCount
	}
	var summary *string
	if text := strings.TrimSpace(c.ConversationSummary); text != "" {
		summary = &text
	}
	return &model.MessageAnalysis{
		ID:                  id.New(),
		WorkspaceID:         params.WorkspaceID,
		MessageID:           params.MessageID,
		Channel:             params.Channel,
		RawText:             params.Text,
		Sentiment:           c.Sentiment,
		SentimentScore:      c.SentimentScore,
		Intent:              c.Intent,
		IntentConfidence:    c.IntentConfidence,
		Topics:              c.Topics,
		Entities:            c.Entities,
		Signals:             c.Signals,
		ConversationSummary: summary,
		PriorMessageCount:   priorCount,
		Model:               c.Model,
		TokensUsed:          c.TokensUsed,
	}
}

// suggestionCount resolves the requested count against the configured
// default and hard cap.
func (s *smartReplyService) suggestionCount(params SmartReplyParams) int {
	count := params.SuggestionCount
	if count <= 0 {
		count = s.cfg.DefaultSuggestions
	}
	if count > s.cfg.MaxSuggestions {
		count = s.cfg.MaxSuggestions
	}
	if count < 1 {
		count = 1
	}
	return count
}

func validateSmartReplyParams(params SmartReplyParams) error {
	if params.WorkspaceID <= 0 {
		return fmt.Errorf("%w: workspace id is required", ErrValidation)
	}
	if params.MessageID == "" {
		return fmt.Errorf("%w: message id is required", ErrValidation)
	}
	if !model.ValidChannel(params.Channel) {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, params.Channel)
	}
	if strings.TrimSpace(params.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	if params.ThreadID != nil && *params.ThreadID == "" {
		return fmt.Errorf("%w: thread id must not be empty when provided", ErrValidation)
	}
	return nil
}

// priorContextHint renders the thread context as a short plain-text summary
// for the extraction prompt.
func priorContextHint(c *model.ConversationContext) *string {
	if c == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d prior messages", c.MessageCount)
	if c.Stage != "" {
		fmt.Fprintf(&b, ", %s stage", c.Stage)
	}
	fmt.Fprintf(&b, ", sentiment %s (%s)", c.OverallSentiment, c.SentimentTrend)
	if len(c.PainPoints) > 0 {
		fmt.Fprintf(&b, ". Known pain points: %s", strings.Join(c.PainPoints, "; "))
	}
	if len(c.Objectives) > 0 {
		fmt.Fprintf(&b, ". Objectives: %s", strings.Join(c.Objectives, "; "))
	}

	return logger.Ptr(b.String())
}
