package service

import (
	"replyloop.app/insight/core/config"
	"replyloop.app/insight/internal/brain"
	"replyloop.app/insight/internal/store"
)

// Services wires the engine's service layer. The conversation service is
// built once and shared: its per-thread locks only serialize writers when
// every writer goes through the same instance.
type Services struct {
	conversations ConversationService
	performance   PerformanceService
	smartReply    SmartReplyService
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	classifier brain.Classifier,
	generator brain.Generator,
	engineCfg config.EngineConfig,
) *Services {
	conversations := NewConversationService(stores.Contexts())
	return &Services{
		conversations: conversations,
		performance:   NewPerformanceService(stores.Suggestions(), stores.Performances()),
		smartReply: NewSmartReplyService(
			classifier,
			generator,
			conversations,
			stores.Analyses(),
			stores.Templates(),
			txRunner,
			engineCfg,
		),
	}
}

func (s *Services) Conversations() ConversationService {
	return s.conversations
}

func (s *Services) Performance() PerformanceService {
	return s.performance
}

func (s *Services) SmartReply() SmartReplyService {
	return s.smartReply
}
