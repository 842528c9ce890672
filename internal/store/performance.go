package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"replyloop.app/insight/core/db"
	"replyloop.app/insight/internal/model"
)

// ErrAlreadyRecorded is returned when an outcome arrives for a performance
// record that is already terminal. Outcomes come from flaky external
// signals, so callers treat this as a warning, not a failure.
var ErrAlreadyRecorded = errors.New("outcome already recorded")

// OutcomeParams carries the one-shot terminal update of a performance row.
type OutcomeParams struct {
	Outcome             model.Outcome
	ResponseSentiment   *model.Sentiment
	ResponseTimeSeconds *int64
	DealValue           *float64
	GotResponse         bool
	LedToOpportunity    bool
	LedToDeal           bool
}

type performanceStore struct {
	q db.Querier
}

func newPerformanceStore(q db.Querier) PerformanceStore {
	return &performanceStore{q: q}
}

const performanceColumns = `id, workspace_id, suggestion_id, sent_message_id, channel, content,
	got_response, response_time_seconds, response_sentiment, outcome,
	led_to_opportunity, led_to_deal, deal_value,
	outcome_recorded, outcome_recorded_at, created_at`

func (s *performanceStore) Create(ctx context.Context, p *model.ReplyPerformance) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO reply_performances (
			id, workspace_id, suggestion_id, sent_message_id, channel, content
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.WorkspaceID, p.SuggestionID, p.SentMessageID, p.Channel, p.Content,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting reply performance: %w", err)
	}
	return nil
}

func (s *performanceStore) GetByID(ctx context.Context, id int64) (*model.ReplyPerformance, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+performanceColumns+` FROM reply_performances WHERE id = $1`, id)
	return scanPerformance(row)
}

// MarkOutcome writes the terminal outcome. The WHERE clause makes the
// record one-shot: a second write hits zero rows and is reported as
// ErrAlreadyRecorded so the first outcome stays untouched.
func (s *performanceStore) MarkOutcome(ctx context.Context, id int64, outcome OutcomeParams) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE reply_performances SET
			got_response = $2,
			response_time_seconds = $3,
			response_sentiment = $4,
			outcome = $5,
			led_to_opportunity = $6,
			led_to_deal = $7,
			deal_value = $8,
			outcome_recorded = TRUE,
			outcome_recorded_at = now()
		WHERE id = $1 AND NOT outcome_recorded`,
		id, outcome.GotResponse, outcome.ResponseTimeSeconds, outcome.ResponseSentiment,
		outcome.Outcome, outcome.LedToOpportunity, outcome.LedToDeal, outcome.DealValue)
	if err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reply_performances WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRecorded
	}
	return ErrNotFound
}

func scanPerformance(row pgx.Row) (*model.ReplyPerformance, error) {
	var p model.ReplyPerformance
	err := row.Scan(
		&p.ID, &p.WorkspaceID, &p.SuggestionID, &p.SentMessageID, &p.Channel, &p.Content,
		&p.GotResponse, &p.ResponseTimeSeconds, &p.ResponseSentiment, &p.Outcome,
		&p.LedToOpportunity, &p.LedToDeal, &p.DealValue,
		&p.OutcomeRecorded, &p.OutcomeRecordedAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
