package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tutor-chat/internal/core/bubble"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

// Тексты исходящих сообщений, которые формируются действиями на пузырях.
const (
	explainPromptFormat      = "Peux tu réexpliquer ce passage ? « %s »"
	similarVisibleFormat     = "Je voudrais un exercice similaire à l'exercice %s."
	similarDirectiveFormat   = "[Consigne système] Propose un nouvel exercice du même type et du même niveau que l'EXERCICE %s, sans donner la solution. Annonce-le avec le même format de numérotation : « 🧩 EXERCICE <numéro> »."
	checkCompletionVisible   = "Ai-je terminé cet exercice ?"
	checkCompletionDirective = "[Consigne système] Évalue si cet échange conclut l'exercice en cours. Si l'exercice est entièrement résolu, termine ta réponse par la ligne exacte « " + bubble.CompletionMarker + " ». Sinon, indique ce qui reste à faire sans donner la solution."
)

var (
	// ErrUnknownMessage — пузырь с указанным идентификатором отсутствует в ленте.
	ErrUnknownMessage = errors.New("unknown message")
	// ErrNotApplicable — действие не применимо к пузырю.
	ErrNotApplicable = errors.New("affordance not applicable")
	// ErrAlreadyUsed — одноразовое действие уже использовано.
	ErrAlreadyUsed = errors.New("affordance already used")
)

// Reaction описывает результат обработки нажатия на действие пузыря.
type Reaction struct {
	Kind domain.AffordanceKind
	// Send заполняется, если действие привело к отправке сообщения.
	Send *SendResult
	// Editor заполняется для действий «скопировать в редактор».
	Editor *domain.EditorState
}

// ReactionDispatcher обрабатывает нажатия на действия пузырей.
// Состояние каждого действия: available -> used для одноразовых,
// available -> available для повторяемых.
type ReactionDispatcher struct {
	controller *ExchangeController
	backend    ports.Backend
	logger     *slog.Logger
}

// NewReactionDispatcher создает новый экземпляр ReactionDispatcher.
func NewReactionDispatcher(controller *ExchangeController, backend ports.Backend, logger *slog.Logger) *ReactionDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReactionDispatcher{
		controller: controller,
		backend:    backend,
		logger:     logger.With("component", "reactions"),
	}
}

// Dispatch выполняет действие kind над пузырем messageID.
func (d *ReactionDispatcher) Dispatch(ctx context.Context, messageID string, kind domain.AffordanceKind) (*Reaction, error) {
	store := d.controller.Store()

	b, ok := store.Bubble(messageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	if !b.Has(kind) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotApplicable, kind, messageID)
	}
	if kind.OneShot() && store.IsUsed(messageID, kind) {
		return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyUsed, kind, messageID)
	}

	msg, _ := store.Message(messageID)
	reaction := &Reaction{Kind: kind}

	switch kind {
	case domain.AffordanceExplain:
		res, err := d.controller.Send(ctx, domain.OutgoingMessage{
			Visible: fmt.Sprintf(explainPromptFormat, b.RawTextForReplay),
		})
		reaction.Send = res
		return reaction, err

	case domain.AffordanceReport:
		if !store.MarkUsed(messageID, kind) {
			return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyUsed, kind, messageID)
		}
		store.MarkReported(messageID)
		if err := d.backend.Report(ctx, messageID); err != nil {
			d.logger.Warn("Не удалось отправить жалобу", "message_id", messageID, "error", err)
		}
		return reaction, nil

	case domain.AffordanceCopyPython, domain.AffordanceCopySQL:
		lang, _ := kind.CopyLanguage()
		code := strings.Join(msg.CodeBlocks(lang), "\n\n")
		state := d.controller.Overlay().Load(lang, code)
		d.controller.state.SetLastUsedLanguage(lang)
		reaction.Editor = &state
		return reaction, nil

	case domain.AffordanceSimilarExercise:
		id := b.ExerciseID
		if id == "" {
			id = bubble.PlaceholderExerciseID
		}
		res, err := d.controller.Send(ctx, domain.OutgoingMessage{
			Visible:   fmt.Sprintf(similarVisibleFormat, id),
			Directive: fmt.Sprintf(similarDirectiveFormat, id),
		})
		if errors.Is(err, ErrBusy) {
			return nil, err
		}
		store.MarkUsed(messageID, kind)
		reaction.Send = res
		return reaction, err

	case domain.AffordanceCheckCompletion:
		res, err := d.controller.Send(ctx, domain.OutgoingMessage{
			Visible:   checkCompletionVisible,
			Directive: checkCompletionDirective,
		})
		reaction.Send = res
		return reaction, err
	}

	return nil, fmt.Errorf("%w: %s", ErrNotApplicable, kind)
}
