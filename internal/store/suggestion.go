package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"replyloop.app/insight/core/db"
	"replyloop.app/insight/internal/model"
)

type suggestionStore struct {
	q db.Querier
}

func newSuggestionStore(q db.Querier) SuggestionStore {
	return &suggestionStore{q: q}
}

const suggestionColumns = `id, analysis_id, workspace_id, suggestion_type, tone, content,
	relevance_score, personalization_score, personalization_elements,
	was_selected, was_edited, final_content, selected_at,
	model, tokens_used, latency_ms, created_at`

func (s *suggestionStore) CreateBatch(ctx context.Context, suggestions []*model.ReplySuggestion) error {
	for _, sg := range suggestions {
		err := s.q.QueryRow(ctx, `
			INSERT INTO reply_suggestions (
				id, analysis_id, workspace_id, suggestion_type, tone, content,
				relevance_score, personalization_score, personalization_elements,
				model, tokens_used, latency_ms
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at`,
			sg.ID, sg.AnalysisID, sg.WorkspaceID, sg.Type, sg.Tone, sg.Content,
			sg.RelevanceScore, sg.PersonalizationScore, sg.PersonalizationElements,
			sg.Model, sg.TokensUsed, sg.LatencyMS,
		).Scan(&sg.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting reply suggestion: %w", err)
		}
	}
	return nil
}

func (s *suggestionStore) GetByID(ctx context.Context, id int64) (*model.ReplySuggestion, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+suggestionColumns+` FROM reply_suggestions WHERE id = $1`, id)
	return scanSuggestion(row)
}

func (s *suggestionStore) ListByAnalysis(ctx context.Context, analysisID int64) ([]model.ReplySuggestion, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+suggestionColumns+` FROM reply_suggestions
		 WHERE analysis_id = $1
		 ORDER BY id`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ReplySuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sg)
	}
	return out, rows.Err()
}

// MarkSelected is idempotent per suggestion: edit state is overwritten on
// every call, selected_at keeps its first value.
func (s *suggestionStore) MarkSelected(ctx context.Context, id int64, wasEdited bool, finalContent *string, selectedAt time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE reply_suggestions SET
			was_selected = TRUE,
			was_edited = $2,
			final_content = $3,
			selected_at = COALESCE(selected_at, $4)
		WHERE id = $1`,
		id, wasEdited, finalContent, selectedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// A sibling row of the same analysis is already selected.
			return ErrSelectionConflict
		}
		return fmt.Errorf("marking suggestion selected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *suggestionStore) HasSelection(ctx context.Context, analysisID, excludeID int64) (bool, error) {
	var selected bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reply_suggestions
			WHERE analysis_id = $1 AND was_selected AND id <> $2
		)`, analysisID, excludeID).Scan(&selected)
	if err != nil {
		return false, err
	}
	return selected, nil
}

func scanSuggestion(row pgx.Row) (*model.ReplySuggestion, error) {
	var sg model.ReplySuggestion
	err := row.Scan(
		&sg.ID, &sg.AnalysisID, &sg.WorkspaceID, &sg.Type, &sg.Tone, &sg.Content,
		&sg.RelevanceScore, &sg.PersonalizationScore, &sg.PersonalizationElements,
		&sg.WasSelected, &sg.WasEdited, &sg.FinalContent, &sg.SelectedAt,
		&sg.Model, &sg.TokensUsed, &sg.LatencyMS, &sg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sg, nil
}
