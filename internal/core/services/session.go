package services

import (
	"log/slog"

	"tutor-chat/internal/conversation"
	"tutor-chat/internal/core/editor"
	"tutor-chat/internal/ports"
)

// NewViewSession собирает состояние одного представления: ленту, оверлей,
// состояние обмена, контроллер и диспетчер действий.
func NewViewSession(
	backend ports.Backend,
	formatter *Formatter,
	defaultLanguage string,
	view ports.View,
	logger *slog.Logger,
) (*ExchangeController, *ReactionDispatcher) {
	controller := NewExchangeController(
		backend,
		conversation.NewStore(),
		NewExchangeState(defaultLanguage),
		editor.NewOverlay(defaultLanguage),
		formatter,
		WithView(view),
		WithLogger(logger),
	)
	return controller, NewReactionDispatcher(controller, backend, logger)
}
