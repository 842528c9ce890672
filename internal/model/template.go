package model

import "time"

// MessageTemplate is a workspace-curated example reply for one intent.
// The engine reads templates as style examples during generation; it does
// not own or edit them. Usage stats are maintained by the dashboard and
// only influence which templates get picked as examples.
type MessageTemplate struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Name         string    `json:"name"`
	Intent       Intent    `json:"intent"`
	Content      string    `json:"content"`
	Variables    []string  `json:"variables"`
	ID           int64     `json:"id"`
	WorkspaceID  int64     `json:"workspace_id"`
	TimesUsed    int       `json:"times_used"`
	ResponseRate float64   `json:"response_rate"`
}
