package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutor-chat/internal/conversation"
	"tutor-chat/internal/core/bubble"
	"tutor-chat/internal/core/editor"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

// ErrorNoticeText — текст уведомления о сбое связи с ассистентом.
const ErrorNoticeText = "Erreur : Impossible de contacter l'assistant."

var (
	// ErrEmptyMessage — сообщение и код пусты после обрезки пробелов. Представления молча игнорируют эту ошибку.
	ErrEmptyMessage = errors.New("empty message")
	// ErrBusy — предыдущая отправка еще не завершена.
	ErrBusy = errors.New("exchange in progress")
)

// SendResult описывает записи, добавленные в ленту за один обмен.
type SendResult struct {
	Outgoing domain.Bubble
	// Reply заполняется при успешном ответе бэкенда.
	Reply *domain.Bubble
	// Notice заполняется при сбое связи.
	Notice *domain.Notice
}

// ExchangeController проводит один цикл запрос/ответ: пузырь исходящего
// сообщения, вызов бэкенда, пузырь ответа или уведомление об ошибке.
type ExchangeController struct {
	backend   ports.Backend
	view      ports.View
	store     *conversation.Store
	state     *ExchangeState
	overlay   *editor.Overlay
	formatter *Formatter
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// ControllerOption определяет функциональную опцию для ExchangeController.
type ControllerOption func(*ExchangeController)

// WithView задает представление, получающее новые записи.
func WithView(v ports.View) ControllerOption {
	return func(c *ExchangeController) {
		if v != nil {
			c.view = v
		}
	}
}

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *ExchangeController) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator задает генератор идентификаторов сообщений.
func WithIDGenerator(fn func() string) ControllerOption {
	return func(c *ExchangeController) {
		c.newID = fn
	}
}

// WithClock задает источник времени.
func WithClock(fn func() time.Time) ControllerOption {
	return func(c *ExchangeController) {
		c.now = fn
	}
}

// NewExchangeController создает новый экземпляр ExchangeController.
func NewExchangeController(
	backend ports.Backend,
	store *conversation.Store,
	state *ExchangeState,
	overlay *editor.Overlay,
	formatter *Formatter,
	opts ...ControllerOption,
) *ExchangeController {
	c := &ExchangeController{
		backend:   backend,
		view:      ports.NopView{},
		store:     store,
		state:     state,
		overlay:   overlay,
		formatter: formatter,
		logger:    slog.Default(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "exchange")
	return c
}

// Send отправляет сообщение. Пустое сообщение и отправка во время другой
// отправки отклоняются (ErrEmptyMessage, ErrBusy) без изменений ленты.
// При сбое связи в ленту добавляется одно уведомление, пузырь ответа не создается,
// а ошибка возвращается вызывающей стороне.
func (c *ExchangeController) Send(ctx context.Context, out domain.OutgoingMessage) (*SendResult, error) {
	if out.IsEmpty() {
		return nil, ErrEmptyMessage
	}
	if !c.state.TryBeginSend() {
		return nil, ErrBusy
	}
	defer c.state.EndSend()

	c.view.SetBusy(true)
	defer c.view.SetBusy(false)

	if out.Language == "" {
		out.Language = c.state.LastUsedLanguage()
	}

	outgoing := c.appendOutgoing(out)
	result := &SendResult{Outgoing: outgoing}

	c.logger.Debug("Отправка сообщения", "message_id", outgoing.ID, "has_directive", out.Directive != "")
	start := c.now()

	reply, err := c.backend.SendMessage(ctx, out.Serialize())
	if err != nil {
		c.logger.Warn("Не удалось получить ответ ассистента", "message_id", outgoing.ID, "error", err)
		notice := c.appendNotice(ErrorNoticeText)
		result.Notice = &notice
		return result, fmt.Errorf("send message: %w", err)
	}

	incoming := c.appendReply(reply)
	result.Reply = &incoming
	c.logger.Debug("Ответ получен", "message_id", incoming.ID, "duration", c.now().Sub(start))
	return result, nil
}

// Submit отправляет видимое сообщение вместе с содержимым открытого оверлея.
// После принятой отправки оверлей очищается и закрывается.
func (c *ExchangeController) Submit(ctx context.Context, visible string) (*SendResult, error) {
	return c.submit(ctx, domain.OutgoingMessage{Visible: visible})
}

// SubmitEchoed работает как Submit, но помечает пузырь исходящего сообщения
// как уже показанный клиентом (собственное сообщение пользователя в чате).
func (c *ExchangeController) SubmitEchoed(ctx context.Context, visible string) (*SendResult, error) {
	return c.submit(ctx, domain.OutgoingMessage{Visible: visible, Echoed: true})
}

func (c *ExchangeController) submit(ctx context.Context, out domain.OutgoingMessage) (*SendResult, error) {
	code, language := c.overlay.Take()
	out.Code, out.Language = code, language
	res, err := c.Send(ctx, out)
	if errors.Is(err, ErrEmptyMessage) || errors.Is(err, ErrBusy) {
		return res, err
	}
	if strings.TrimSpace(code) != "" {
		c.overlay.Clear()
		c.overlay.Hide()
	}
	return res, err
}

// ToggleEditor переключает оверлей и запоминает выбранный язык.
func (c *ExchangeController) ToggleEditor(language string) domain.EditorState {
	state := c.overlay.Toggle(language)
	c.state.SetLastUsedLanguage(state.Language)
	return state
}

// OpenEditor открывает оверлей с готовым текстом, например загруженным из файла.
func (c *ExchangeController) OpenEditor(language, content string) domain.EditorState {
	state := c.overlay.Open(language, content)
	c.state.SetLastUsedLanguage(language)
	return state
}

// Clear очищает ленту, если отправка не идет; иначе возвращает ErrBusy.
// resetView, если задан, вызывается до снятия флага отправки, поэтому
// новая отправка не может попасть между очисткой ленты и сбросом представления.
func (c *ExchangeController) Clear(resetView func()) error {
	if !c.state.TryBeginSend() {
		return ErrBusy
	}
	defer c.state.EndSend()

	c.store.Clear()
	if resetView != nil {
		resetView()
	}
	return nil
}

// Busy сообщает, идет ли отправка.
func (c *ExchangeController) Busy() bool {
	return c.state.Sending()
}

// Overlay возвращает оверлей редактора представления.
func (c *ExchangeController) Overlay() *editor.Overlay {
	return c.overlay
}

// Backend возвращает бэкенд, с которым работает представление.
func (c *ExchangeController) Backend() ports.Backend {
	return c.backend
}

// Store возвращает ленту диалога.
func (c *ExchangeController) Store() *conversation.Store {
	return c.store
}

func (c *ExchangeController) appendOutgoing(out domain.OutgoingMessage) domain.Bubble {
	code := strings.TrimSpace(out.Code)
	msg := domain.Message{
		ID:           c.newID(),
		Role:         domain.RoleUser,
		RawText:      out.Serialize(),
		Visible:      strings.TrimSpace(out.Visible),
		Directive:    strings.TrimSpace(out.Directive),
		AttachedCode: code,
		Segments:     bubble.UserSegments(out.Visible, code, out.Language),
	}
	if code != "" {
		msg.CodeLanguage = out.Language
	}

	b := bubble.Build(msg, c.formatter.Render(msg.Segments), c.now())
	b.Echoed = out.Echoed
	c.appendBubble(msg, b)
	return b
}

func (c *ExchangeController) appendReply(reply string) domain.Bubble {
	segments, markup := c.formatter.FormatReply(reply)
	msg := domain.Message{
		ID:       c.newID(),
		Role:     domain.RoleAssistant,
		RawText:  reply,
		Segments: segments,
	}

	b := bubble.Build(msg, markup, c.now())
	c.appendBubble(msg, b)
	return b
}

func (c *ExchangeController) appendBubble(msg domain.Message, b domain.Bubble) {
	c.store.AppendBubble(msg, b)
	c.view.AppendBubble(b)
	c.view.ScrollToLatest()
	c.view.Typeset(b.ID)
}

func (c *ExchangeController) appendNotice(text string) domain.Notice {
	n := domain.Notice{ID: c.newID(), Text: text, CreatedAt: c.now()}
	c.store.AppendNotice(n)
	c.view.AppendNotice(n)
	c.view.ScrollToLatest()
	return n
}
