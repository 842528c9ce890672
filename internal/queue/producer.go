package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// OutcomeEvent is one reply-outcome signal flowing through the stream.
// External systems may XADD directly with the same field names, so the wire
// shape is flat strings, never JSON blobs.
type OutcomeEvent struct {
	ResponseSentiment   *string
	ResponseTimeSeconds *int64
	DealValue           *float64
	TraceID             *string
	Outcome             string
	PerformanceID       int64
	Attempt             int
	GotResponse         bool
	LedToOpportunity    bool
	LedToDeal           bool
}

type Producer interface {
	Enqueue(ctx context.Context, event OutcomeEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, event OutcomeEvent) error {
	attempt := event.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"performance_id": event.PerformanceID,
		"outcome":        event.Outcome,
		"got_response":   event.GotResponse,
		"attempt":        attempt,
	}
	if event.ResponseTimeSeconds != nil {
		fields["response_time_seconds"] = *event.ResponseTimeSeconds
	}
	if event.ResponseSentiment != nil && *event.ResponseSentiment != "" {
		fields["response_sentiment"] = *event.ResponseSentiment
	}
	if event.LedToOpportunity {
		fields["led_to_opportunity"] = true
	}
	if event.LedToDeal {
		fields["led_to_deal"] = true
	}
	if event.DealValue != nil {
		fields["deal_value"] = *event.DealValue
	}
	if event.TraceID != nil && *event.TraceID != "" {
		fields["trace_id"] = *event.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue outcome: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued outcome event", "performance_id", event.PerformanceID, "outcome", event.Outcome, "attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
