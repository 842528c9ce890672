package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"replyloop.app/insight/common/logger"
)

type ConsumerConfig struct {
	Stream       string        // Redis stream name
	Group        string        // Redis consumer group name
	Consumer     string        // Redis consumer name
	DLQStream    string        // Dead letter queue stream for failed messages
	BatchSize    int64         // Number of messages to process per batch
	Block        time.Duration // How long to block/poll for new messages
	MaxAttempts  int           // Maximum retry attempts before moving to DLQ
	RequeueDelay time.Duration // Delay before retrying failed messages
}

type Message struct {
	ID    string
	Event OutcomeEvent
	Raw   redis.XMessage
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Consumer groups are just readers, messages live in the stream itself.
	// Starting from "0" instead of "$" means outcomes published while no
	// worker was running are still picked up after a restart.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "insight.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// > = new messages not yet delivered to anyone. Unacked messages are
		// handled by the reclaimer, which runs on a different goroutine.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   c.cfg.BatchSize,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	// XReadGroup supports multiple streams, but we only read one so this
	// outer loop only runs once.
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			parsed, parseErr := ParseMessage(msg)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse outcome event, sending to DLQ",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				_ = c.SendDLQ(ctx, Message{ID: msg.ID, Raw: msg}, parseErr.Error())
				continue
			}
			messages = append(messages, parsed)
		}
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}

	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream)
	return nil
}

func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	nextAttempt := msg.Event.Attempt + 1
	return c.RequeueWithAttempt(ctx, msg, nextAttempt, errMsg)
}

func (c *RedisConsumer) RequeueWithAttempt(ctx context.Context, msg Message, attempt int, errMsg string) error {
	if attempt <= 0 {
		attempt = msg.Event.Attempt
		if attempt <= 0 {
			attempt = 1
		}
	}

	values := messageValues(msg.Event, attempt)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if c.cfg.RequeueDelay > 0 {
		time.Sleep(c.cfg.RequeueDelay)
	}

	// Re-add before acking: a crash between the two leaves a duplicate in
	// the stream, never a lost event. Duplicate outcome deliveries are
	// no-ops downstream.
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking requeued message: %w", err)
	}

	slog.InfoContext(ctx, "message requeued for retry",
		"performance_id", msg.Event.PerformanceID,
		"next_attempt", attempt,
		"reason", errMsg)
	return nil
}

func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	var values map[string]any
	if msg.Event.PerformanceID != 0 {
		values = messageValues(msg.Event, msg.Event.Attempt)
	} else {
		// Unparsable payload: forward the raw fields so nothing is lost.
		values = msg.Raw.Values
		if values == nil {
			values = map[string]any{}
		}
	}
	values["error"] = errMsg

	// Park in the DLQ before acking so a crash between the two duplicates
	// the entry rather than dropping it.
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking dlq message: %w", err)
	}

	slog.ErrorContext(ctx, "message sent to DLQ",
		"performance_id", msg.Event.PerformanceID,
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	performanceID, err := parseInt64(msg.Values, "performance_id")
	if err != nil {
		return Message{}, err
	}

	outcome, err := parseString(msg.Values, "outcome")
	if err != nil {
		return Message{}, err
	}

	gotResponse, err := parseOptionalBool(msg.Values, "got_response")
	if err != nil {
		return Message{}, err
	}
	ledToOpportunity, err := parseOptionalBool(msg.Values, "led_to_opportunity")
	if err != nil {
		return Message{}, err
	}
	ledToDeal, err := parseOptionalBool(msg.Values, "led_to_deal")
	if err != nil {
		return Message{}, err
	}

	responseTime, err := parseOptionalInt64(msg.Values, "response_time_seconds")
	if err != nil {
		return Message{}, err
	}
	dealValue, err := parseOptionalFloat64(msg.Values, "deal_value")
	if err != nil {
		return Message{}, err
	}

	responseSentiment, err := parseOptionalString(msg.Values, "response_sentiment")
	if err != nil {
		return Message{}, err
	}
	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	event := OutcomeEvent{
		PerformanceID:       performanceID,
		Outcome:             outcome,
		GotResponse:         gotResponse,
		LedToOpportunity:    ledToOpportunity,
		LedToDeal:           ledToDeal,
		ResponseTimeSeconds: responseTime,
		DealValue:           dealValue,
		Attempt:             attempt,
	}
	if responseSentiment != "" {
		event.ResponseSentiment = &responseSentiment
	}
	if traceID != "" {
		event.TraceID = &traceID
	}

	return Message{
		ID:    msg.ID,
		Event: event,
		Raw:   msg,
	}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	str := fmt.Sprint(raw)
	if str == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return str, nil
}

func parseOptionalInt64(values map[string]any, key string) (*int64, error) {
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return &num, nil
}

func parseOptionalFloat64(values map[string]any, key string) (*float64, error) {
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return &num, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	str := fmt.Sprint(raw)
	num, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalBool(values map[string]any, key string) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	str := fmt.Sprint(raw)
	b, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}

func messageValues(event OutcomeEvent, attempt int) map[string]any {
	values := map[string]any{
		"performance_id": event.PerformanceID,
		"outcome":        event.Outcome,
		"got_response":   event.GotResponse,
		"attempt":        attempt,
	}

	if event.ResponseTimeSeconds != nil {
		values["response_time_seconds"] = *event.ResponseTimeSeconds
	}
	if event.ResponseSentiment != nil && *event.ResponseSentiment != "" {
		values["response_sentiment"] = *event.ResponseSentiment
	}
	if event.LedToOpportunity {
		values["led_to_opportunity"] = true
	}
	if event.LedToDeal {
		values["led_to_deal"] = true
	}
	if event.DealValue != nil {
		values["deal_value"] = *event.DealValue
	}
	if event.TraceID != nil && *event.TraceID != "" {
		values["trace_id"] = *event.TraceID
	}

	return values
}
