package log

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

const (
	maskedToken   = "bot***:***masked-token***"
	maskedSession = "***masked-session***"
	maskedSecret  = "***masked***"
)

// maskRule заменяет совпадения шаблона в тексте записи.
type maskRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var defaultRules = []maskRule{
	// Токен бота в формате bot<id>:<секрет>, в том числе внутри URL Bot API.
	{regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`), maskedToken},
	// Cookie сессии бэкенда: session=<значение>, session_id=<значение> и т.п.
	{regexp.MustCompile(`(?i)\b(session[A-Za-z0-9_-]*)=([^;\s"&]+)`), "${1}=" + maskedSession},
}

// SecretMaskHandler оборачивает slog.Handler и скрывает секреты в сообщении
// и строковых атрибутах записи, включая ошибки и вложенные группы.
type SecretMaskHandler struct {
	handler slog.Handler
	secrets []string
}

// NewSecretMaskHandler создает обработчик. Кроме известных шаблонов (токен бота,
// cookie сессии) маскируются переданные буквальные значения, например
// значение cookie из конфигурации. Пустые значения игнорируются.
func NewSecretMaskHandler(handler slog.Handler, secrets ...string) *SecretMaskHandler {
	h := &SecretMaskHandler{handler: handler}
	for _, s := range secrets {
		if s != "" {
			h.secrets = append(h.secrets, s)
		}
	}
	return h
}

func (h *SecretMaskHandler) mask(text string) string {
	for _, s := range h.secrets {
		text = strings.ReplaceAll(text, s, maskedSecret)
	}
	for _, rule := range defaultRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// Enabled реализует интерфейс slog.Handler
func (h *SecretMaskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *SecretMaskHandler) Handle(ctx context.Context, record slog.Record) error {
	// Исходная запись не изменяется: в новую попадают только маскированные атрибуты.
	masked := slog.NewRecord(record.Time, record.Level, h.mask(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *SecretMaskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.maskAttr(a)
	}
	return &SecretMaskHandler{handler: h.handler.WithAttrs(masked), secrets: h.secrets}
}

// WithGroup реализует интерфейс slog.Handler
func (h *SecretMaskHandler) WithGroup(name string) slog.Handler {
	return &SecretMaskHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *SecretMaskHandler) maskAttr(a slog.Attr) slog.Attr {
	return slog.Attr{Key: a.Key, Value: h.maskValue(a.Value)}
}

func (h *SecretMaskHandler) maskValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(h.mask(value.String()))
	case slog.KindAny:
		// Текст ошибок (например, *url.Error) часто содержит URL с токеном.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(h.mask(err.Error()))
		}
		return value
	case slog.KindLogValuer:
		return h.maskValue(value.Resolve())
	case slog.KindGroup:
		group := value.Group()
		masked := make([]slog.Attr, len(group))
		for i, a := range group {
			masked[i] = h.maskAttr(a)
		}
		return slog.GroupValue(masked...)
	default:
		return value
	}
}
