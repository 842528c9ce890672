package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"replyloop.app/insight/common/logger"
	"replyloop.app/insight/internal/model"
	"replyloop.app/insight/internal/queue"
	"replyloop.app/insight/internal/service"
	"replyloop.app/insight/internal/store"
)

// OutcomeRecorder is the slice of the performance service the worker needs.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, performanceID int64, outcome service.OutcomeParams) error
}

type Config struct {
	MaxAttempts int
}

// Worker drains the outcome stream and applies each event to its
// performance record. The recorder treats duplicate outcomes as no-ops, so
// redelivered messages are safe to process again.
type Worker struct {
	consumer *queue.RedisConsumer
	recorder OutcomeRecorder
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, recorder OutcomeRecorder, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		recorder:  recorder,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "insight.worker",
	})

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"performance_id", msg.Event.PerformanceID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"performance_id", msg.Event.PerformanceID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage applies one outcome event. Exported so it can be reused by
// the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	var traceID string
	if msg.Event.TraceID != nil {
		traceID = *msg.Event.TraceID
	}
	sc := logger.StartSpanFromTraceID(ctx, traceID, "worker.process_outcome",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		PerformanceID: logger.Ptr(msg.Event.PerformanceID),
		StreamID:      logger.Ptr(msg.ID),
	})

	slog.InfoContext(ctx, "processing outcome event",
		"outcome", msg.Event.Outcome,
		"attempt", msg.Event.Attempt)

	params, err := outcomeParams(msg.Event)
	if err != nil {
		return fmt.Errorf("invalid outcome event: %w", err)
	}

	if err := w.recorder.RecordOutcome(ctx, msg.Event.PerformanceID, params); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Redelivery is safe: the recorder drops the duplicate outcome.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	return nil
}

// handleFailedMessage routes a failure: fatal events go straight to the
// DLQ, retryable ones are requeued until MaxAttempts.
func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if isFatal(err) {
		slog.ErrorContext(ctx, "unrecoverable outcome event, sending to DLQ",
			"message_id", msg.ID,
			"performance_id", msg.Event.PerformanceID)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	if msg.Event.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"performance_id", msg.Event.PerformanceID,
			"attempts", msg.Event.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"performance_id", msg.Event.PerformanceID,
		"attempt", msg.Event.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

// isFatal reports whether retrying the event can never succeed: the
// performance record does not exist or the payload fails validation.
func isFatal(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, errInvalidEvent)
}

var errInvalidEvent = errors.New("invalid outcome event")

func outcomeParams(event queue.OutcomeEvent) (service.OutcomeParams, error) {
	outcome := model.Outcome(event.Outcome)
	if !model.ValidOutcome(outcome) {
		return service.OutcomeParams{}, fmt.Errorf("%w: unknown outcome %q", errInvalidEvent, event.Outcome)
	}

	params := service.OutcomeParams{
		Outcome:             outcome,
		ResponseTimeSeconds: event.ResponseTimeSeconds,
		DealValue:           event.DealValue,
		GotResponse:         event.GotResponse,
		LedToOpportunity:    event.LedToOpportunity,
		LedToDeal:           event.LedToDeal,
	}

	if event.ResponseSentiment != nil {
		sentiment := model.Sentiment(*event.ResponseSentiment)
		switch sentiment {
		case model.SentimentPositive, model.SentimentNegative, model.SentimentNeutral, model.SentimentMixed:
			params.ResponseSentiment = &sentiment
		default:
			return service.OutcomeParams{}, fmt.Errorf("%w: unknown response sentiment %q", errInvalidEvent, *event.ResponseSentiment)
		}
	}

	return params, nil
}
