package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"replyloop.app/insight/core/db"
	"replyloop.app/insight/internal/model"
)

type analysisStore struct {
	q db.Querier
}

func newAnalysisStore(q db.Querier) AnalysisStore {
	return &analysisStore{q: q}
}

const analysisColumns = `id, workspace_id, message_id, channel, raw_text,
	sentiment, sentiment_score, intent, intent_confidence,
	topics, people, companies, dates, locations, products,
	pain_points, objectives, decision_makers, competitors,
	conversation_summary, prior_message_count, model, tokens_used, created_at`

func (s *analysisStore) Create(ctx context.Context, a *model.MessageAnalysis) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO message_analyses (
			id, workspace_id, message_id, channel, raw_text,
			sentiment, sentiment_score, intent, intent_confidence,
			topics, people, companies, dates, locations, products,
			pain_points, objectives, decision_makers, competitors,
			conversation_summary, prior_message_count, model, tokens_used
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23
		)
		RETURNING created_at`,
		a.ID, a.WorkspaceID, a.MessageID, a.Channel, a.RawText,
		a.Sentiment, a.SentimentScore, a.Intent, a.IntentConfidence,
		a.Topics, a.Entities.People, a.Entities.Companies, a.Entities.Dates,
		a.Entities.Locations, a.Entities.Products,
		a.Signals.PainPoints, a.Signals.Objectives, a.Signals.DecisionMakers,
		a.Signals.Competitors,
		a.ConversationSummary, a.PriorMessageCount, a.Model, a.TokensUsed,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message analysis: %w", err)
	}
	return nil
}

func (s *analysisStore) GetByID(ctx context.Context, id int64) (*model.MessageAnalysis, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM message_analyses WHERE id = $1`, id)
	return scanAnalysis(row)
}

func (s *analysisStore) GetByMessage(ctx context.Context, workspaceID int64, messageID string) (*model.MessageAnalysis, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM message_analyses
		 WHERE workspace_id = $1 AND message_id = $2`, workspaceID, messageID)
	return scanAnalysis(row)
}

func (s *analysisStore) ListByWorkspace(ctx context.Context, workspaceID int64, limit int32) ([]model.MessageAnalysis, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+analysisColumns+` FROM message_analyses
		 WHERE workspace_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MessageAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAnalysis(row pgx.Row) (*model.MessageAnalysis, error) {
	var a model.MessageAnalysis
	err := row.Scan(
		&a.ID, &a.WorkspaceID, &a.MessageID, &a.Channel, &a.RawText,
		&a.Sentiment, &a.SentimentScore, &a.Intent, &a.IntentConfidence,
		&a.Topics, &a.Entities.People, &a.Entities.Companies, &a.Entities.Dates,
		&a.Entities.Locations, &a.Entities.Products,
		&a.Signals.PainPoints, &a.Signals.Objectives, &a.Signals.DecisionMakers,
		&a.Signals.Competitors,
		&a.ConversationSummary, &a.PriorMessageCount, &a.Model, &a.TokensUsed,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
