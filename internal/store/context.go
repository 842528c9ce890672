package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"replyloop.app/insight/core/db"
	"replyloop.app/insight/internal/model"
)

type contextStore struct {
	q db.Querier
}

func newContextStore(q db.Querier) ContextStore {
	return &contextStore{q: q}
}

const contextColumns = `id, workspace_id, thread_id, message_count, last_message_at,
	stage, overall_sentiment, sentiment_trend,
	pain_points, objectives, decision_makers, competitors,
	created_at, updated_at`

func (s *contextStore) GetByThread(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+contextColumns+` FROM conversation_contexts
		 WHERE workspace_id = $1 AND thread_id = $2`, workspaceID, threadID)
	return scanContext(row)
}

func (s *contextStore) Create(ctx context.Context, c *model.ConversationContext) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO conversation_contexts (
			id, workspace_id, thread_id, message_count, last_message_at,
			stage, overall_sentiment, sentiment_trend,
			pain_points, objectives, decision_makers, competitors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		c.ID, c.WorkspaceID, c.ThreadID, c.MessageCount, c.LastMessageAt,
		c.Stage, c.OverallSentiment, c.SentimentTrend,
		c.PainPoints, c.Objectives, c.DecisionMakers, c.Competitors,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation context: %w", err)
	}
	return nil
}

// Update writes the full mutable state of the context, guarded on the
// message count read before mutation. A zero-row update on an existing row
// means another writer slipped in between read and write.
func (s *contextStore) Update(ctx context.Context, c *model.ConversationContext, expectedCount int) error {
	err := s.q.QueryRow(ctx, `
		UPDATE conversation_contexts SET
			message_count = $2,
			last_message_at = $3,
			stage = $4,
			overall_sentiment = $5,
			sentiment_trend = $6,
			pain_points = $7,
			objectives = $8,
			decision_makers = $9,
			competitors = $10,
			updated_at = now()
		WHERE id = $1 AND message_count = $11
		RETURNING updated_at`,
		c.ID, c.MessageCount, c.LastMessageAt, c.Stage, c.OverallSentiment,
		c.SentimentTrend, c.PainPoints, c.Objectives, c.DecisionMakers,
		c.Competitors, expectedCount,
	).Scan(&c.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("updating conversation context: %w", err)
	}

	var exists bool
	if err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversation_contexts WHERE id = $1)`, c.ID,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrConcurrentModification
	}
	return ErrNotFound
}

func scanContext(row pgx.Row) (*model.ConversationContext, error) {
	var c model.ConversationContext
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.ThreadID, &c.MessageCount, &c.LastMessageAt,
		&c.Stage, &c.OverallSentiment, &c.SentimentTrend,
		&c.PainPoints, &c.Objectives, &c.DecisionMakers, &c.Competitors,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
