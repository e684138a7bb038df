// Package render превращает фрагменты сообщения в разметку для представлений.
package render

import (
	"html"
	"strings"

	"tutor-chat/internal/domain"
)

// Highlighter раскрашивает код. Возвращаемая разметка уже экранирована.
// Второй результат false означает, что язык не поддерживается и код
// выводится простым экранированным текстом.
type Highlighter interface {
	Highlight(language, code string) (string, bool)
}

// HTMLRenderer отрисовывает фрагменты в HTML. Рендеринг не изменяет вход
// и зависит только от фрагментов и соответствия язык -> класс.
type HTMLRenderer struct {
	languageClasses map[string]string
	highlighter     Highlighter
}

// Option определяет функциональную опцию для HTMLRenderer.
type Option func(*HTMLRenderer)

// WithLanguageClasses задает CSS-классы блоков кода для языков.
// Для языков вне соответствия используется "language-<тег>".
func WithLanguageClasses(classes map[string]string) Option {
	return func(r *HTMLRenderer) {
		for lang, class := range classes {
			r.languageClasses[lang] = class
		}
	}
}

// WithHighlighter подключает подсветку синтаксиса.
func WithHighlighter(h Highlighter) Option {
	return func(r *HTMLRenderer) {
		r.highlighter = h
	}
}

// NewHTMLRenderer создает новый экземпляр HTMLRenderer.
func NewHTMLRenderer(opts ...Option) *HTMLRenderer {
	r := &HTMLRenderer{
		languageClasses: map[string]string{
			domain.LanguagePython:    "language-python",
			domain.LanguageSQL:       "language-sql",
			domain.LanguagePlaintext: "language-plaintext",
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render отрисовывает последовательность фрагментов.
func (r *HTMLRenderer) Render(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if seg.IsCode() {
			r.writeCode(&sb, seg)
			continue
		}
		sb.WriteString(`<div class="prose">`)
		sb.WriteString(EscapeProse(seg.Content))
		sb.WriteString(`</div>`)
	}
	return sb.String()
}

func (r *HTMLRenderer) writeCode(sb *strings.Builder, seg domain.Segment) {
	lang := seg.Language
	if lang == "" {
		lang = domain.LanguagePlaintext
	}
	class, ok := r.languageClasses[lang]
	if !ok {
		class = "language-" + lang
	}

	body := html.EscapeString(seg.Content)
	if r.highlighter != nil {
		if highlighted, ok := r.highlighter.Highlight(lang, seg.Content); ok {
			body = highlighted
		}
	}

	sb.WriteString(`<pre class="code-block" data-lang="`)
	sb.WriteString(html.EscapeString(lang))
	sb.WriteString(`"><code class="`)
	sb.WriteString(html.EscapeString(class))
	sb.WriteString(`">`)
	sb.WriteString(body)
	sb.WriteString(`</code></pre>`)
}

// EscapeProse экранирует текст и затем заменяет каждый перевод строки на <br>,
// так что многострочная проза не схлопывается в одну строку.
func EscapeProse(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}
