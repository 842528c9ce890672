package store

import (
	"replyloop.app/insight/core/db"
)

// Stores hands out typed store implementations bound to one Querier, which
// is either the shared pool or a transaction.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Analyses() AnalysisStore {
	return newAnalysisStore(s.q)
}

func (s *Stores) Contexts() ContextStore {
	return newContextStore(s.q)
}

func (s *Stores) Suggestions() SuggestionStore {
	return newSuggestionStore(s.q)
}

func (s *Stores) Performances() PerformanceStore {
	return newPerformanceStore(s.q)
}

func (s *Stores) Templates() TemplateStore {
	return newTemplateStore(s.q)
}
