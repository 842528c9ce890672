package store

import (
	"context"

	"replyloop.app/insight/core/db"
	"replyloop.app/insight/internal/model"
)

type templateStore struct {
	q db.Querier
}

func newTemplateStore(q db.Querier) TemplateStore {
	return &templateStore{q: q}
}

// ListByIntent returns the workspace's templates for an intent, most used
// first, so the generator picks the examples that historically worked.
func (s *templateStore) ListByIntent(ctx context.Context, workspaceID int64, intent model.Intent, limit int32) ([]model.MessageTemplate, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, workspace_id, name, intent, content, variables,
			times_used, response_rate, created_at, updated_at
		FROM message_templates
		WHERE workspace_id = $1 AND intent = $2
		ORDER BY times_used DESC, id
		LIMIT $3`, workspaceID, intent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MessageTemplate
	for rows.Next() {
		var t model.MessageTemplate
		if err := rows.Scan(
			&t.ID, &t.WorkspaceID, &t.Name, &t.Intent, &t.Content, &t.Variables,
			&t.TimesUsed, &t.ResponseRate, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
