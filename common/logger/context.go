package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where business
// context (thread_id, analysis_id, etc.) is automatically included in all log statements.
type LogFields struct {
	WorkspaceID   *int64  // Workspace ID
	ThreadID      *string // Conversation thread ID
	MessageID     *string // Inbound message ID (external)
	AnalysisID    *int64  // Message analysis ID
	SuggestionID  *int64  // Reply suggestion ID
	PerformanceID *int64  // Reply performance record ID
	Channel       *string // Message channel (email, linkedin, ...)
	StreamID      *string // Redis stream entry ID
	Component     string  // Component name (OTel semantic convention style, e.g., "insight.brain.generator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.WorkspaceID != nil {
		result.WorkspaceID = new.WorkspaceID
	}
	if new.ThreadID != nil {
		result.ThreadID = new.ThreadID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.AnalysisID != nil {
		result.AnalysisID = new.AnalysisID
	}
	if new.SuggestionID != nil {
		result.SuggestionID = new.SuggestionID
	}
	if new.PerformanceID != nil {
		result.PerformanceID = new.PerformanceID
	}
	if new.Channel != nil {
		result.Channel = new.Channel
	}
	if new.StreamID != nil {
		result.StreamID = new.StreamID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{AnalysisID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like prompts or raw model output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
