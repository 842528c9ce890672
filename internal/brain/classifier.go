package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"replyloop.app/insight/common/llm"
	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/internal/model"
)

// ClassifyParams is the input to one classification call. SenderName and
// PriorContext are optional hints injected into the extraction prompt.
type ClassifyParams struct {
	Text         string
	SenderName   *string
	PriorContext *string
}

// ClassificationResult is the structured output of one classification call.
// The JSON shape doubles as the schema embedded in the extraction prompt.
type ClassificationResult struct {
	Sentiment        model.Sentiment           `json:"sentiment" jsonschema:"required,enum=positive,enum=negative,enum=neutral,enum=mixed"`
	SentimentScore   float64                   `json:"sentiment_score" jsonschema:"required,description=Sentiment strength from -1.0 (very negative) to 1.0 (very positive)"`
	Intent           model.Intent              `json:"intent" jsonschema:"required,enum=question,enum=complaint,enum=interest,enum=objection,enum=meeting_request,enum=pricing_inquiry,enum=feature_request,enum=support_request,enum=unsubscribe,enum=other"`
	IntentConfidence float64                   `json:"intent_confidence" jsonschema:"required,description=Confidence in the intent label from 0.0 to 1.0"`
	Topics           []string                  `json:"topics" jsonschema:"description=Discussion topics in order of prominence"`
	Entities         model.Entities            `json:"entities"`
	Signals          model.ConversationSignals `json:"signals"`

	// ConversationSummary is one model-written sentence describing where
	// the conversation stands after this message.
	ConversationSummary string `json:"conversation_summary" jsonschema:"description=One sentence summarizing where the conversation stands after this message"`

	// Provenance, filled in by the adapter rather than the model.
	Model      string `json:"-"`
	TokensUsed int    `json:"-"`
}

// Classifier turns a raw inbound message into a structured classification.
// It has no persistence side effects; storing the result is the caller's job.
type Classifier interface {
	Analyze(ctx context.Context, params ClassifyParams) (*ClassificationResult, error)
}

type ClassifierConfig struct {
	Timeout time.Duration // per external call
}

type llmClassifier struct {
	client  llm.CompletionClient
	timeout time.Duration
}

func NewClassifier(client llm.CompletionClient, cfg ClassifierConfig) Classifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &llmClassifier{
		client:  client,
		timeout: timeout,
	}
}

func (c *llmClassifier) Analyze(ctx context.Context, params ClassifyParams) (*ClassificationResult, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, NewFatalError(fmt.Errorf("message text is required"))
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "insight.brain.classifier",
	})

	prompt := classifyPrompt(params)

	// Two attempts total: a malformed reply or a retryable transport
	// failure (rate limit, server error, network) gets one retry before
	// escalating. Client errors and cancellation bail immediately.
	var (
		result     *ClassificationResult
		tokensUsed int
		lastErr    error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		completion, err := c.client.Complete(callCtx, llm.CompletionRequest{
			Prompt:      prompt,
			Temperature: logger.Ptr(0.0),
		})
		cancel()
		if err != nil {
			// The caller gave up; nothing to retry against.
			if ctx.Err() != nil {
				return nil, NewFatalError(fmt.Errorf("%w: %w", ErrClassifierUnavailable, err))
			}

			// Our own per-call timeout fired: the provider was too slow,
			// which is as retryable as a server error.
			timedOut := errors.Is(err, context.DeadlineExceeded)
			if timedOut {
				slog.WarnContext(ctx, "classification timed out", "timeout", c.timeout)
			}

			if !timedOut && !llm.IsRetryable(ctx, err) {
				return nil, NewFatalError(fmt.Errorf("%w: %w", ErrClassifierUnavailable, err))
			}
			if attempt == 1 {
				lastErr = err
				continue
			}
			return nil, NewRetryableError(fmt.Errorf("%w: %w", ErrClassifierUnavailable, err))
		}

		tokensUsed += completion.TokensUsed

		parsed, parseErr := parseClassification(completion.Text)
		if parseErr != nil {
			lastErr = parseErr
			slog.WarnContext(ctx, "unparsable classifier output",
				"attempt", attempt,
				"error", parseErr,
				"payload", logger.Truncate(RedactPII(completion.Text), 500))
			continue
		}

		result = parsed
		break
	}

	if result == nil {
		return nil, NewRetryableError(fmt.Errorf("%w: %w", ErrMalformedResponse, lastErr))
	}

	clampClassification(ctx, result)
	result.Model = c.client.Model()
	result.TokensUsed = tokensUsed

	slog.DebugContext(ctx, "message classified",
		"sentiment", result.Sentiment,
		"sentiment_score", result.SentimentScore,
		"intent", result.Intent,
		"intent_confidence", result.IntentConfidence,
		"topics", len(result.Topics),
		"tokens_used", tokensUsed)

	return result, nil
}

// parseClassification decodes the model reply, tolerating a fenced
// ```json block around the payload.
func parseClassification(raw string) (*ClassificationResult, error) {
	text := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	var result ClassificationResult
	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding classification: %w", err)
	}
	if result.Sentiment == "" && result.Intent == "" {
		return nil, fmt.Errorf("classification missing sentiment and intent")
	}
	return &result, nil
}

// clampClassification forces the result into the documented invariants
// rather than failing the call: the sentiment score sign must match the
// label, confidence must sit in [0,1], and unknown enum values fall back
// to neutral/other. Every correction is logged.
func clampClassification(ctx context.Context, r *ClassificationResult) {
	switch r.Sentiment {
	case model.SentimentPositive:
		if r.SentimentScore <= 0 {
			slog.WarnContext(ctx, "sentiment score clamped to match label",
				"sentiment", r.Sentiment, "score", r.SentimentScore)
			r.SentimentScore = 0.1
		} else if r.SentimentScore > 1 {
			r.SentimentScore = 1
		}
	case model.SentimentNegative:
		if r.SentimentScore >= 0 {
			slog.WarnContext(ctx, "sentiment score clamped to match label",
				"sentiment", r.Sentiment, "score", r.SentimentScore)
			r.SentimentScore = -0.1
		} else if r.SentimentScore < -1 {
			r.SentimentScore = -1
		}
	case model.SentimentNeutral:
		if r.SentimentScore != 0 {
			slog.WarnContext(ctx, "sentiment score clamped to match label",
				"sentiment", r.Sentiment, "score", r.SentimentScore)
			r.SentimentScore = 0
		}
	case model.SentimentMixed:
		if r.SentimentScore > 1 {
			r.SentimentScore = 1
		} else if r.SentimentScore < -1 {
			r.SentimentScore = -1
		}
	default:
		slog.WarnContext(ctx, "unknown sentiment label, falling back to neutral",
			"sentiment", r.Sentiment)
		r.Sentiment = model.SentimentNeutral
		r.SentimentScore = 0
	}

	if !model.ValidIntent(r.Intent) {
		slog.WarnContext(ctx, "unknown intent label, falling back to other",
			"intent", r.Intent)
		r.Intent = model.IntentOther
	}

	if r.IntentConfidence < 0 {
		r.IntentConfidence = 0
	} else if r.IntentConfidence > 1 {
		r.IntentConfidence = 1
	}
}
