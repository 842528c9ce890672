package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"replyloop.app/insight/common/llm"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/internal/model"
)

// GenerateParams is one suggestion batch request. Context and Templates are
// optional; SenderName feeds both the prompt and the personalization check.
type GenerateParams struct {
	Analysis       *model.MessageAnalysis
	Context        *model.ConversationContext
	Templates      []model.MessageTemplate
	SenderName     string
	MaxSuggestions int
}

// Generator produces scored reply candidates for an analysis. Candidates
// are generated concurrently and failures are isolated per candidate: one
// slow or broken call never sinks the batch.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*model.ReplySuggestion, error)
}

type GeneratorConfig struct {
	Timeout     time.Duration // per candidate call
	MaxParallel int           // concurrent generation calls
}

type llmGenerator struct {
	client      llm.CompletionClient
	timeout     time.Duration
	maxParallel int
}

func NewGenerator(client llm.CompletionClient, cfg GeneratorConfig) Generator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 25 * time.Second
	}
	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 3
	}
	return &llmGenerator{
		client:      client,
		timeout:     timeout,
		maxParallel: maxParallel,
	}
}

type candidateResult struct {
	suggestion *model.ReplySuggestion
	err        error
}

func (g *llmGenerator) Generate(ctx context.Context, params GenerateParams) ([]*model.ReplySuggestion, error) {
	if params.Analysis == nil {
		return nil, NewFatalError(fmt.Errorf("analysis is required"))
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "insight.brain.generator",
	})

	stage := model.Stage("")
	if params.Context != nil {
		stage = params.Context.Stage
	}
	plan := BuildPlan(params.Analysis.Intent, stage, params.MaxSuggestions)
	if len(plan) == 0 {
		return nil, NewFatalError(fmt.Errorf("no candidates planned for intent %q", params.Analysis.Intent))
	}

	slog.DebugContext(ctx, "generating suggestion candidates",
		"intent", params.Analysis.Intent,
		"candidates", len(plan))

	// Fan out one generation call per candidate with bounded parallelism;
	// results land position-indexed so ranking stays deterministic.
	results := make([]candidateResult, len(plan))
	var wg sync.WaitGroup
	sem := make(chan struct{}, g.maxParallel)

	for i, candidate := range plan {
		wg.Add(1)
		go func(i int, candidate Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			suggestion, err := g.generateOne(ctx, candidate, params)
			results[i] = candidateResult{suggestion: suggestion, err: err}
		}(i, candidate)
	}
	wg.Wait()

	// Skip-on-failure: failed candidates drop out, survivors keep their
	// plan order.
	suggestions := make([]*model.ReplySuggestion, 0, len(plan))
	for i, r := range results {
		if r.err != nil {
			slog.WarnContext(ctx, "candidate generation failed, skipping",
				"type", plan[i].Type,
				"tone", plan[i].Tone,
				"error", r.err)
			continue
		}
		suggestions = append(suggestions, r.suggestion)
	}

	if len(suggestions) == 0 {
		return nil, NewRetryableError(fmt.Errorf("%w: all %d candidates failed", ErrGenerationFailed, len(plan)))
	}

	return suggestions, nil
}

func (g *llmGenerator) generateOne(ctx context.Context, candidate Candidate, params GenerateParams) (*model.ReplySuggestion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	completion, err := g.client.Complete(callCtx, llm.CompletionRequest{
		Prompt: generationPrompt(candidate, params, params.SenderName),
	})
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("generating %s/%s candidate: %w", candidate.Type, candidate.Tone, err)
	}

	content := strings.TrimSpace(completion.Text)
	if content == "" {
		return nil, fmt.Errorf("empty %s/%s candidate", candidate.Type, candidate.Tone)
	}

	elements := DetectPersonalization(content, params.SenderName, params.Analysis)

	return &model.ReplySuggestion{
		Type:                    candidate.Type,
		Tone:                    candidate.Tone,
		Content:                 content,
		RelevanceScore:          RelevanceScore(content, params.Analysis.Intent, params.Analysis.Topics),
		PersonalizationScore:    PersonalizationScore(elements),
		PersonalizationElements: elements,
		Model:                   g.client.Model(),
		TokensUsed:              completion.TokensUsed,
		LatencyMS:               latency.Milliseconds(),
	}, nil
}
