package store

import (
	"context"
	"errors"
	"time"

	"replyloop.app/insight/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConcurrentModification is returned when a guarded context update loses
// a race. With per-thread serialization in place this indicates the lock was
// bypassed, which is a programming error rather than a runtime condition.
var ErrConcurrentModification = errors.New("concurrent modification")

// ErrSelectionConflict is returned when marking a suggestion selected would
// give its analysis a second selected row. Backed by a partial unique index
// on (analysis_id) WHERE was_selected.
var ErrSelectionConflict = errors.New("selection conflict")

// AnalysisStore defines the contract for message analysis data access.
// Analyses are append-only: there is no update or delete.
type AnalysisStore interface {
	Create(ctx context.Context, analysis *model.MessageAnalysis) error
	GetByID(ctx context.Context, id int64) (*model.MessageAnalysis, error)
	GetByMessage(ctx context.Context, workspaceID int64, messageID string) (*model.MessageAnalysis, error)
	ListByWorkspace(ctx context.Context, workspaceID int64, limit int32) ([]model.MessageAnalysis, error)
}

// ContextStore defines the contract for conversation context data access.
type ContextStore interface {
	GetByThread(ctx context.Context, workspaceID int64, threadID string) (*model.ConversationContext, error)
	Create(ctx context.Context, c *model.ConversationContext) error
	// Update persists c guarded on the message count the caller read.
	// Returns ErrConcurrentModification if another writer got there first.
	Update(ctx context.Context, c *model.ConversationContext, expectedCount int) error
}

// SuggestionStore defines the contract for reply suggestion data access.
type SuggestionStore interface {
	CreateBatch(ctx context.Context, suggestions []*model.ReplySuggestion) error
	GetByID(ctx context.Context, id int64) (*model.ReplySuggestion, error)
	ListByAnalysis(ctx context.Context, analysisID int64) ([]model.ReplySuggestion, error)
	// MarkSelected flips was_selected and overwrites the edit state. The
	// first selection sets selected_at; later calls keep it.
	MarkSelected(ctx context.Context, id int64, wasEdited bool, finalContent *string, selectedAt time.Time) error
	// HasSelection reports whether any suggestion of the analysis other
	// than excludeID is already selected.
	HasSelection(ctx context.Context, analysisID, excludeID int64) (bool, error)
}

// PerformanceStore defines the contract for reply performance data access.
type PerformanceStore interface {
	Create(ctx context.Context, p *model.ReplyPerformance) error
	GetByID(ctx context.Context, id int64) (*model.ReplyPerformance, error)
	// MarkOutcome writes the outcome fields exactly once. Returns
	// ErrAlreadyRecorded when the record is already terminal.
	MarkOutcome(ctx context.Context, id int64, outcome OutcomeParams) error
}

// TemplateStore reads the workspace template library. The engine never
// writes templates; the dashboard owns them.
type TemplateStore interface {
	ListByIntent(ctx context.Context, workspaceID int64, intent model.Intent, limit int32) ([]model.MessageTemplate, error)
}
