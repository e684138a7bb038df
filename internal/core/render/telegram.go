package render

import (
	"html"
	"strings"

	"tutor-chat/internal/domain"
)

// Telegram отрисовывает фрагменты в подмножество HTML, которое принимает
// Telegram Bot API: переводы строк остаются символами, код — в <pre><code>.
func Telegram(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if !seg.IsCode() {
			sb.WriteString(html.EscapeString(strings.ReplaceAll(seg.Content, "\r\n", "\n")))
			continue
		}
		sb.WriteString(`<pre><code class="language-`)
		sb.WriteString(html.EscapeString(seg.Language))
		sb.WriteString(`">`)
		sb.WriteString(html.EscapeString(seg.Content))
		sb.WriteString("</code></pre>")
	}
	return sb.String()
}

// TelegramRenderer реализует ports.Renderer поверх Telegram.
type TelegramRenderer struct{}

func (TelegramRenderer) Render(segments []domain.Segment) string {
	return Telegram(segments)
}
